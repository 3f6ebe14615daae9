//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=../mocks/mock_verifier.go -package=mocks
package auth

import (
	"context"

	"mingle-chat/domain"
)

// CredentialVerifier maps a bearer credential presented at connection
// handshake to a stable user identity. Identity issuance itself lives in
// the account service; this boundary only verifies.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, credential string) (domain.UserID, error)
}
