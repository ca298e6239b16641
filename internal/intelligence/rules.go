package intelligence

// defaultRules returns the built-in classification rules
func defaultRules() []Rule {
	return []Rule{
		{
			Name:       "datacredito_branding",
			ReportType: ReportTypeDataCredito,
			Keywords: []string{
				"datacrédito", "datacredito", "experian",
				"historia de crédito", "historia de credito",
			},
			KeywordPatterns: []string{
				`data\s*cr[eé]dito`,
				`consultado\s+por\s*:`,
				`fecha\s+y\s+hora\s+consulta`,
			},
			Weight:        1.0,
			MinConfidence: 0.1,
			Enabled:       true,
			Description:   "Bureau name and the query header printed on every DataCrédito report",
		},
		{
			Name:       "datacredito_sections",
			ReportType: ReportTypeDataCredito,
			Keywords: []string{
				"sector financiero", "sector real", "sector telcos",
				"créditos vigentes", "creditos vigentes",
				"huella de consulta", "antigüedad ubicación",
			},
			KeywordPatterns: []string{
				`rango\s+edad`,
				`estado\s+documento\s*:`,
				`score\s+datacr[eé]dito`,
			},
			Weight:        0.8,
			MinConfidence: 0.2,
			Enabled:       true,
			Description:   "Section titles of the sector tables and the identity block",
		},
		{
			Name:       "other_bureau",
			ReportType: ReportTypeOtherBureau,
			Keywords: []string{
				"transunion", "cifin", "procrédito", "procredito",
				"asobancaria",
			},
			KeywordPatterns: []string{
				`reporte\s+de\s+informaci[oó]n\s+comercial`,
			},
			Weight:        1.0,
			MinConfidence: 0.1,
			Enabled:       true,
			Description:   "Names of other Colombian credit bureaus",
		},
	}
}

// DefaultRules returns a copy of the built-in rules
func DefaultRules() []Rule {
	return defaultRules()
}
