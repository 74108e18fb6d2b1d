package extractor

// Selectors describes where messages live in a chat page's markup.
// Container strategies are tried in order and the first one that matches at least
// one element wins; text selectors are tried in order inside each container.
type Selectors struct {
	Containers    []string `yaml:"containers" json:"containers"`
	Texts         []string `yaml:"texts" json:"texts"`
	OutgoingClass string   `yaml:"outgoing_class" json:"outgoing_class"`
	IDAttr        string   `yaml:"id_attr" json:"id_attr"`
	TimestampAttr string   `yaml:"timestamp_attr" json:"timestamp_attr"`
	PeerAttr      string   `yaml:"peer_attr" json:"peer_attr"`
}

// DefaultSelectors returns the profile for the VK web messenger.
func DefaultSelectors() Selectors {
	return Selectors{
		Containers: []string{
			".im-mess._im_mess",
			`[class*="im-mess"]`,
			"li[data-msgid]",
		},
		Texts: []string{
			".im-mess--text",
			`[class*="mess--text"]`,
			".message_text",
		},
		OutgoingClass: "im-mess_out",
		IDAttr:        "data-msgid",
		TimestampAttr: "data-ts",
		PeerAttr:      "data-peer",
	}
}

// WithDefaults fills empty fields from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	def := DefaultSelectors()
	if len(s.Containers) == 0 {
		s.Containers = def.Containers
	}
	if len(s.Texts) == 0 {
		s.Texts = def.Texts
	}
	if s.OutgoingClass == "" {
		s.OutgoingClass = def.OutgoingClass
	}
	if s.IDAttr == "" {
		s.IDAttr = def.IDAttr
	}
	if s.TimestampAttr == "" {
		s.TimestampAttr = def.TimestampAttr
	}
	if s.PeerAttr == "" {
		s.PeerAttr = def.PeerAttr
	}
	return s
}
