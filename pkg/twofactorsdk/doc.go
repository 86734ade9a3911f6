/*
Package twofactorsdk is the Go client for the twofactor service.

# Client vs Session

Client covers the public endpoints and the local password login:

	client := twofactorsdk.NewClient("https://2fa.example.com")

	health, err := client.GetReadiness(ctx)
	session, err := client.Login(ctx, "alice@example.com", "correct horse")

A Session carries a bearer token, either from Login or issued by the
upstream identity provider:

	session := client.NewSession(accessToken)

	setup, err := session.BeginSetup(ctx)
	// show setup.ProvisioningURI as a QR code and setup.BackupCodes once
	status, err := session.ConfirmSetup(ctx, setup.SetupToken, code)

	result, err := session.Verify(ctx, twofactorsdk.VerifyRequest{Code: code})
	// result.Assertion is a short-lived EdDSA JWT with amr ["otp"]

# Errors

Every non-2xx response becomes an *APIError:

	var apiErr *twofactorsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == twofactorsdk.ErrorCodeRateLimited {
		time.Sleep(apiErr.RetryAfter)
	}
*/
package twofactorsdk
