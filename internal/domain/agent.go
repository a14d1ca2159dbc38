package domain

// AgentConfig is the typed upstream configuration of one assistant.
type AgentConfig struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Description    string    `json:"description,omitempty" yaml:"description"`
	Kind           AgentKind `json:"kind" yaml:"kind"`
	APIURL         string    `json:"-" yaml:"api_url"`
	APIKey         string    `json:"-" yaml:"api_key"`
	Username       string    `json:"-" yaml:"username"`
	Password       string    `json:"-" yaml:"password"`
	Placeholder    string    `json:"placeholder,omitempty" yaml:"placeholder"`
	WelcomeMessage string    `json:"welcome_message,omitempty" yaml:"welcome_message"`
}
