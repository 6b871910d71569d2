package survey

// HeatPumpEnquiry returns the five step heat pump enquiry questionnaire.
func HeatPumpEnquiry() *Definition {
	d, err := NewDefinition([]Step{
		{
			Title: "What fuel do you currently use to heat your home?",
			Kind:  KindSingleChoice,
			Name:  "fuelType",
			Options: []Option{
				{Value: "Gas", Label: "Natural gas"},
				{Value: "Oil", Label: "Heating oil"},
				{Value: "LPG", Label: "LPG"},
				{Value: "Electric", Label: "Electric"},
				{Value: "Other", Label: "Other"},
			},
		},
		{
			Title: "How many bedrooms does your property have?",
			Kind:  KindSingleChoice,
			Name:  "bedrooms",
			Options: []Option{
				{Value: "1", Label: "One bedroom"},
				{Value: "2", Label: "Two bedrooms"},
				{Value: "3", Label: "Three bedrooms"},
				{Value: "4", Label: "Four bedrooms"},
				{Value: "5+", Label: "Five or more"},
			},
		},
		{
			Title: "What type of property do you live in?",
			Kind:  KindSingleChoice,
			Name:  "propertyType",
			Options: []Option{
				{Value: "Detached", Label: "Detached"},
				{Value: "Semi-detached", Label: "Semi-detached"},
				{Value: "Terraced", Label: "Terraced"},
				{Value: "Bungalow", Label: "Bungalow"},
				{Value: "Flat", Label: "Flat"},
			},
		},
		{
			Title: "Where should we send your quote?",
			Kind:  KindFreeForm,
			Fields: []Field{
				{Name: "postcode", Label: "Post code", Type: FieldTypeText, Required: true, Postcode: true,
					Placeholder: "SW1A 1AA"},
				{Name: "address", Label: "Address", Type: FieldTypeText, Required: true},
				{Name: "name", Label: "Name", Type: FieldTypeText, Required: true},
				{Name: "telephone", Label: "Telephone", Type: FieldTypeTel, Required: true,
					Pattern: `[0-9+() -]{10,20}`},
				{Name: "email", Label: "Email", Type: FieldTypeEmail, Required: true},
			},
		},
		{
			Title: "Anything else we should know?",
			Kind:  KindFreeForm,
			Fields: []Field{
				{Name: "contactTime", Label: "Best time to contact you", Type: FieldTypeText, Required: true,
					Placeholder: "Weekday mornings"},
				{Name: "message", Label: "Message", Type: FieldTypeTextarea, MaxLength: 1000}, //nolint:mnd // UX limit
			},
		},
	})
	if err != nil {
		// The bundled questionnaire is static, a failure is a programming error.
		panic(err)
	}
	return d
}
