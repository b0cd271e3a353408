package highlight

// DefaultVocabulary is the curated regulatory risk vocabulary marked in
// analysis reports. Multi-word phrases are listed alongside their component
// words; Find prefers the longer phrase when both match.
func DefaultVocabulary() []string {
	return []string{
		"material adverse effect",
		"enforcement action",
		"civil penalty",
		"criminal penalty",
		"capital requirement",
		"disclosure requirement",
		"reporting obligation",
		"regulatory approval",
		"license revocation",
		"public comment period",
		"effective date",
		"safety standard",
		"data protection",
		"export control",
		"price cap",
		"compliance",
		"non-compliance",
		"enforcement",
		"penalty",
		"fine",
		"sanction",
		"prohibition",
		"prohibited",
		"restriction",
		"divestiture",
		"moratorium",
		"recall",
		"liability",
		"antitrust",
		"tariff",
		"levy",
		"subsidy",
		"exemption",
		"oversight",
		"audit",
		"registration",
		"certification",
		"emissions",
		"phase-out",
		"deadline",
	}
}
