package schema

// DefaultCatalog describes the three primary pipeline tables. The
// orchestrator substitutes it when no data has been loaded so that the
// agents always have something to validate against.
func DefaultCatalog() *Registry {
	tables := []Table{
		{
			Name: "PROD_MQT_CONSULTING_PIPELINE",
			Columns: []string{
				"OPPTY_ID", "CLIENT_NAME", "ACCOUNT_NAME", "GEOGRAPHY", "MARKET",
				"SALES_STAGE", "OPPORTUNITY_VALUE", "OPEN_PIPELINE", "OPEN_PIPELINE_AMT",
				"PPV_AMT", "IBM_GEN_AI_IND", "PARTNER_GEN_AI_IND",
				"OPPORTUNITY_CREATE_DATE", "CLOSE_DATE",
				"RELATIVE_QUARTER_MNEUMONIC", "WEEK", "QUARTER", "YEAR", "SNAPSHOT_LEVEL",
			},
		},
		{
			Name: "PROD_MQT_SW_SAAS_OPPORTUNITY",
			Columns: []string{
				"OPPORTUNITY_NUMBER", "ACCOUNT_NAME", "OPEN_PIPELINE",
				"SALES_STAGE", "OPPORTUNITY_VALUE",
			},
		},
		{
			Name: "PROD_MQT_SOFTWARE_TRANSACTIONAL_PIPELINE",
			Columns: []string{
				"GEOGRAPHY", "MARKET", "PPV", "PPV_AMT",
				"OPPORTUNITY_VALUE", "SALES_STAGE",
			},
		},
	}

	const dictionary = `PPV_AMT = AI-based revenue forecast (use for forecasting).
OPPORTUNITY_VALUE = Deal value (use for pipeline value).
SALES_STAGE values: 'Qualify', 'Propose', 'Negotiate', 'Won', 'Lost'.
Exclude Won/Lost deals for active pipeline analysis.
SNAPSHOT_LEVEL = 'W' selects the weekly snapshot.
MQT tables (PROD_MQT_*) are pre-aggregated; prefer them for reporting.`

	return NewRegistry(tables, "", dictionary)
}
