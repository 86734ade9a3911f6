package http

import (
	"net/http"

	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
)

// JWKSHandler publishes the keys that sign assertions and login tokens.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify assertions and login tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	twofactorsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, twofactorsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
