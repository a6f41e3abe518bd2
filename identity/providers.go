package identity

import (
	"fmt"
	"strconv"
	"strings"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
)

// extractor turns a provider's user-info claims into an Identity.
type extractor func(claims map[string]any) Identity

// extractors is closed: a ProviderKind without an entry cannot sign in externally.
// Facebook only releases an email the person has confirmed, so its identities are verified.
var extractors = map[users.ProviderKind]extractor{
	users.ProviderGoogle: func(claims map[string]any) Identity {
		return Identity{
			Email:         stringClaim(claims, "email"),
			DisplayName:   stringClaim(claims, "name"),
			PictureURL:    stringClaim(claims, "picture"),
			Provider:      users.ProviderGoogle,
			ProviderID:    utils.NonEmptyPtr(stringClaim(claims, "sub")),
			EmailVerified: boolClaim(claims, "email_verified"),
		}
	},
	users.ProviderFacebook: func(claims map[string]any) Identity {
		return Identity{
			Email:         stringClaim(claims, "email"),
			DisplayName:   stringClaim(claims, "name"),
			PictureURL:    stringClaim(claims, "picture", "data", "url"),
			Provider:      users.ProviderFacebook,
			ProviderID:    utils.NonEmptyPtr(stringClaim(claims, "id")),
			EmailVerified: true,
		}
	},
}

// Extract maps provider claims to an Identity. The email claim is mandatory.
func Extract(kind users.ProviderKind, claims map[string]any) (Identity, error) {
	extract, ok := extractors[kind]
	if !ok {
		return Identity{}, autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "provider %q", kind)
	}
	id := extract(claims)
	if strings.TrimSpace(id.Email) == "" {
		return Identity{}, autherrors.Wrapf(autherrors.ErrUnsupportedProvider, "%s: no email claim", kind)
	}
	return id, nil
}

// SupportsProvider reports whether kind has an extractor.
func SupportsProvider(kind users.ProviderKind) bool {
	_, ok := extractors[kind]
	return ok
}

// boolClaim accepts a JSON boolean or its string form, which some providers send.
func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		verified, _ := strconv.ParseBool(v)
		return verified
	default:
		return false
	}
}

// stringClaim walks nested objects along path and returns the leaf as a string.
func stringClaim(claims map[string]any, path ...string) string {
	var current any = claims
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = m[key]
	}

	switch v := current.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
