package schema

// VoiceProfile is the synthesis parameter bundle of a trainer. The session
// engine passes it through to playback without interpreting it.
type VoiceProfile struct {
	VoiceID string `json:"voice_id" yaml:"voice_id"`
	Style   string `json:"style" yaml:"style"`
	Rate    int    `json:"rate" yaml:"rate"`
	Pitch   int    `json:"pitch" yaml:"pitch"`
}

// DefaultVoice is used when a persona does not carry a voice profile.
var DefaultVoice = VoiceProfile{VoiceID: "en-US-terrell", Style: "Conversational"}

// Persona is an AI trainer the user practices against.
type Persona struct {
	Name        string       `json:"name" yaml:"name"`
	Role        string       `json:"role" yaml:"role"`
	Bio         string       `json:"bio" yaml:"bio"`
	Specialties []string     `json:"specialties" yaml:"specialties"`
	Languages   []string     `json:"languages,omitempty" yaml:"languages,omitempty"`
	Accent      string       `json:"accent,omitempty" yaml:"accent,omitempty"`
	Modes       []Mode       `json:"modes,omitempty" yaml:"modes,omitempty"`
	Voice       VoiceProfile `json:"voice" yaml:"voice"`
}

// Supports reports whether the persona can train the given mode. A persona
// without a mode list trains every mode.
func (p *Persona) Supports(m Mode) bool {
	if len(p.Modes) == 0 {
		return true
	}
	for _, pm := range p.Modes {
		if pm == m {
			return true
		}
	}
	return false
}
