package services

import (
	"encoding/json"
	"fmt"

	"github.com/sufield/vaultsession/internal/core/domain"
	vaulterrors "github.com/sufield/vaultsession/internal/core/errors"
)

// unwrapEnvelope is the doubly-encoded payload a cubbyhole/response call's
// Data.Response string decodes to: either an auth block (token wrapping) or
// a generic data map (secret-id / arbitrary secret wrapping).
type unwrapEnvelope struct {
	Auth *domain.AuthBlock `json:"auth"`
	Data map[string]any    `json:"data"`
}

func decodeUnwrapEnvelope(env domain.CubbyholeEnvelope) (*unwrapEnvelope, error) {
	if env.Data == nil || env.Data.Response == "" {
		return nil, vaulterrors.NewConfigurationError("cubbyhole response has no wrapped payload", nil)
	}
	var inner unwrapEnvelope
	if err := json.Unmarshal([]byte(env.Data.Response), &inner); err != nil {
		return nil, vaulterrors.NewConfigurationError("malformed wrapped response payload", err)
	}
	return &inner, nil
}

// UnwrapCubbyholeToken extracts the single unwrapped token from a
// cubbyhole/response envelope per §6: auth.client_token takes priority when
// present (token wrapping); otherwise the generic data map must contain
// exactly one key, whose value is the unwrapped token/secret. "No data" and
// "multiple keys" are distinct, explicitly-worded errors.
func UnwrapCubbyholeToken(env domain.CubbyholeEnvelope) (string, error) {
	inner, err := decodeUnwrapEnvelope(env)
	if err != nil {
		return "", err
	}
	if inner.Auth != nil && inner.Auth.ClientToken != "" {
		return inner.Auth.ClientToken, nil
	}
	if inner.Data == nil {
		return "", vaulterrors.NewConfigurationError("unwrap response does not contain a token", nil)
	}
	switch len(inner.Data) {
	case 0:
		return "", vaulterrors.NewConfigurationError("unwrap response does not contain a token", nil)
	case 1:
		for _, v := range inner.Data {
			return fmt.Sprint(v), nil
		}
	}
	return "", vaulterrors.NewConfigurationError("unwrap response does not contain an unique token", nil)
}

// UnwrapCubbyholeSessionToken is UnwrapCubbyholeToken's richer counterpart:
// when the wrapped payload is a token-wrapping (auth.client_token present),
// the full lease/renewable/accessor metadata carries over via the same
// construction a login response gets; a data-wrapped single secret becomes
// a bare, unleased token the caller must self-lookup to size.
func UnwrapCubbyholeSessionToken(env domain.CubbyholeEnvelope) (domain.SessionToken, error) {
	inner, err := decodeUnwrapEnvelope(env)
	if err != nil {
		return domain.SessionToken{}, err
	}
	if inner.Auth != nil && inner.Auth.ClientToken != "" {
		return tokenFromAuthBlock(inner.Auth), nil
	}
	if inner.Data == nil {
		return domain.SessionToken{}, vaulterrors.NewConfigurationError("unwrap response does not contain a token", nil)
	}
	switch len(inner.Data) {
	case 0:
		return domain.SessionToken{}, vaulterrors.NewConfigurationError("unwrap response does not contain a token", nil)
	case 1:
		for _, v := range inner.Data {
			return domain.Of(fmt.Sprint(v)), nil
		}
	}
	return domain.SessionToken{}, vaulterrors.NewConfigurationError("unwrap response does not contain an unique token", nil)
}

// UnwrapCubbyholeData decodes a cubbyhole/response envelope's generic data
// map without enforcing the single-key rule, for pull-mode flows that
// legitimately retrieve more than one field (e.g. both role_id and
// secret_id) from one wrapped payload.
func UnwrapCubbyholeData(env domain.CubbyholeEnvelope) (map[string]any, error) {
	inner, err := decodeUnwrapEnvelope(env)
	if err != nil {
		return nil, err
	}
	if inner.Data == nil {
		return nil, vaulterrors.NewConfigurationError("unwrap response does not contain a token", nil)
	}
	return inner.Data, nil
}
