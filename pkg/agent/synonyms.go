package agent

// columnSynonyms maps conventional analyst column names to the warehouse
// variants they usually resolve to. The column validator consults this table
// (forward and reverse) before falling back to substring matching.
var columnSynonyms = map[string][]string{
	"OPPORTUNITY_ID":    {"OPPTY_ID", "OPP_ID", "OPPORTUNITY_NUM", "DEAL_ID"},
	"OPPORTUNITY_VALUE": {"OPPTY_VALUE", "DEAL_VALUE", "OPPORTUNITY_AMT", "OPP_VALUE"},
	"CLIENT_NAME":       {"CUSTOMER_NAME", "ACCOUNT_NAME", "CLIENT_ID", "CUSTOMER_ID"},
	"SALES_STAGE":       {"STAGE", "OPPORTUNITY_STAGE", "DEAL_STAGE"},
	"WON_AMT":           {"WON_AMOUNT", "WON_VALUE", "CLOSED_WON_AMT"},
	"REVENUE_AMT":       {"REVENUE", "REVENUE_AMOUNT", "ACTUAL_REVENUE"},
	"PIPELINE_AMT":      {"PIPELINE_VALUE", "PIPELINE_AMOUNT"},
	"BUDGET_AMT":        {"BUDGET", "BUDGET_AMOUNT", "TARGET_REVENUE"},
}

// fallbackSubstitutions is the regenerator's last-resort rewrite table when
// no LLM is available. Deliberately smaller than columnSynonyms: these are
// the only renames safe to apply blind.
var fallbackSubstitutions = map[string]string{
	"OPPORTUNITY_ID":    "OPPTY_ID",
	"OPPORTUNITY_VALUE": "PPV_AMT",
	"CLIENT_NAME":       "CUSTOMER_NAME",
	"REVENUE_AMT":       "ACTUAL_REVENUE",
	"PIPELINE_AMT":      "PIPELINE_VALUE",
}
