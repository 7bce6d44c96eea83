// Package holder is the wire contract between vcanchor and holder wallets on
// the message bus. Wallets are built outside this repository, so fields are
// only ever added.
package holder

// ContractVersion identifies the schema carried in Request.Version.
const ContractVersion = "v1"

type Verifier struct {
	Org     string `json:"org"`
	Contact string `json:"contact,omitempty"`
	Purpose string `json:"purpose"`
}

// Request asks the wallet for consent. CredentialID is empty when the
// verifier left the choice of credential to the holder.
type Request struct {
	Version      string   `json:"version"`
	SessionID    string   `json:"session_id"`
	CredentialID string   `json:"credential_id,omitempty"`
	Verifier     Verifier `json:"verifier"`
	RequestedAt  string   `json:"requested_at"`
	ExpiresAt    string   `json:"expires_at"`
}

// Response is the wallet's answer.
type Response struct {
	SessionID    string `json:"session_id"`
	CredentialID string `json:"credential_id"`
	Approve      bool   `json:"approve"`
}

type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Ack is sent back on the reply subject of a Response. Error carries the
// same code an HTTP caller would see in its error body.
type Ack struct {
	SessionID string  `json:"session_id"`
	State     string  `json:"state,omitempty"`
	Result    *Result `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
}
