package models

// SecretType classifies a stored secret.
type SecretType string

const (
	SecretAPIKey   SecretType = "api-key"
	SecretPassword SecretType = "password"
	SecretToken    SecretType = "token"
	SecretConfig   SecretType = "config"
)

// Secret is a credential kept for a project. Value is held in memory as
// plaintext; whether it is sealed on disk depends on the persistence codec.
type Secret struct {
	Base
	ProjectID   string     `json:"project_id"`
	Name        string     `json:"name"`
	Value       string     `json:"value"`
	Type        SecretType `json:"type"`
	Description string     `json:"description,omitempty"`
}

func (s Secret) Clone() Secret { return s }

func (s Secret) ProjectRef() string { return s.ProjectID }
