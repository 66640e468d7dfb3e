// Package credential parses the service-account credential used for
// privileged calls to the identity provider.
//
// Parsing is a pure function of the raw configuration string: no network,
// no globals. Deployment tooling sometimes stores the JSON blob with an
// extra layer of quoting, so the parser makes exactly one attempt to unwrap
// it before giving up.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EnvVar is the environment variable the credential is read from. Errors
// name it so an operator knows what to fix.
const EnvVar = "FIREBASE_SERVICE_ACCOUNT"

// Stage identifies which parsing step rejected the credential.
type Stage string

const (
	StageMissing Stage = "missing"         // nothing configured
	StageStrict  Stage = "strict-parse"    // not a JSON object, and not quoted either
	StageUnwrap  Stage = "unwrap-reparse"  // quoted, but the unwrapped text is not a JSON object
	StageFields  Stage = "required-fields" // valid JSON missing type/project_id/private_key
)

// ParseError is returned for every rejected credential.
type ParseError struct {
	Stage   Stage
	Missing []string // only for StageFields
	Err     error    // underlying JSON error, if any
}

func (e *ParseError) Error() string {
	switch e.Stage {
	case StageMissing:
		return fmt.Sprintf("%s is empty", EnvVar)
	case StageFields:
		return fmt.Sprintf("%s is missing required fields: %s", EnvVar, strings.Join(e.Missing, ", "))
	default:
		return fmt.Sprintf("failed to parse %s (%s): %v", EnvVar, e.Stage, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ServiceAccount is the subset of a Google service-account key the portal
// needs. JSON holds the normalised key document (after any unwrapping) for
// libraries that want the original bytes.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`

	JSON []byte `json:"-"`
}

// ParseServiceAccount turns the raw configuration value into a validated
// credential.
//
// PARSE SEQUENCE:
//  1. strict parse of the trimmed text as a JSON object
//  2. if that fails and the text is wrapped in quotes, unwrap once and parse again
//  3. check type, project_id and private_key are present
func ParseServiceAccount(raw string) (*ServiceAccount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ParseError{Stage: StageMissing}
	}

	doc := []byte(raw)
	sa, firstErr := decode(doc)
	if firstErr != nil {
		inner, ok := unwrapQuoted(raw)
		if !ok {
			return nil, &ParseError{Stage: StageStrict, Err: firstErr}
		}
		doc = []byte(inner)
		var err error
		if sa, err = decode(doc); err != nil {
			return nil, &ParseError{Stage: StageUnwrap, Err: errors.Join(firstErr, err)}
		}
	}

	var missing []string
	if sa.Type == "" {
		missing = append(missing, "type")
	}
	if sa.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if sa.PrivateKey == "" {
		missing = append(missing, "private_key")
	}
	if len(missing) > 0 {
		return nil, &ParseError{Stage: StageFields, Missing: missing}
	}

	sa.JSON = doc
	return sa, nil
}

func decode(doc []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(doc, &sa); err != nil {
		return nil, err
	}
	return &sa, nil
}

// unwrapQuoted removes one layer of quoting. A double-quoted value is
// decoded as a JSON string literal so escaped inner quotes come out right;
// if that fails (or the value uses single quotes) the outer pair is simply
// stripped.
func unwrapQuoted(raw string) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}
	first, last := raw[0], raw[len(raw)-1]
	if first != last || (first != '"' && first != '\'') {
		return "", false
	}
	if first == '"' {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return strings.TrimSpace(s), true
		}
	}
	return strings.TrimSpace(raw[1 : len(raw)-1]), true
}
