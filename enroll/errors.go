package enroll

import "fmt"

// Stage names one enrollment pipeline step, used both for error context
// and to let a caller match against a specific failure scenario.
type Stage string

const (
	StageDirectory           Stage = "get_directory"
	StageNonce               Stage = "get_nonce"
	StageNewAccount          Stage = "new_account"
	StageNewOrder            Stage = "new_order"
	StageNewAuthorization    Stage = "new_authorization"
	StageExtractChallenges   Stage = "extract_challenges"
	StageBackendNonce        Stage = "get_backend_nonce"
	StageCreateDpopToken     Stage = "create_dpop_token"
	StageGetAccessToken      Stage = "get_access_token"
	StageVerifyDpopChallenge Stage = "verify_dpop_challenge"
	StageOIDCDiscovery       Stage = "fetch_oidc_provider_config"
	StageFetchIDToken        Stage = "fetch_id_token"
	StageVerifyOidcChallenge Stage = "verify_oidc_challenge"
	StageFinalize            Stage = "finalize"
	StageGetCertificate      Stage = "get_certificate"
)

// Error wraps a pipeline stage failure with the stage it occurred in, so
// every error surfaces to the caller rather than being silently retried.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("enroll: %s: %s", e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Err: err}
}
