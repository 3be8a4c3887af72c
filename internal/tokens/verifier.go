package tokens

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/multimart/multimart/backend/go-services/pkg/middleware"
)

// claimsToken exposes verified claims to the bearer middleware.
type claimsToken struct {
	claims map[string]interface{}
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verifier checks locally-minted HS256 access tokens.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier { return &Verifier{secret: secret} }

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := parse(v.secret, raw)
	if err != nil {
		return nil, err
	}
	if claims["typ"] != PurposeAccess {
		return nil, fmt.Errorf("unexpected token purpose %v", claims["typ"])
	}
	return &claimsToken{claims: claims}, nil
}
