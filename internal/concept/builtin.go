package concept

// builtinConcepts are the concepts shipped with the binary. Additional
// concepts can be registered from YAML files via Registry.LoadFile.
var builtinConcepts = []Concept{
	{
		ID:   "income_wealth_inequality",
		Name: "Income and Wealth Inequality",
		Description: "Discussions of income and wealth inequality, including disparities " +
			"in earnings, assets, economic opportunity, and distribution of resources. " +
			"This concept focuses on how inequality is represented, measured, discussed, " +
			"and framed across different sources and time periods.",
		InclusionCriteria: []string{
			"Discusses income inequality, wage gaps, or earnings disparities",
			"Addresses wealth inequality, asset distribution, or wealth gaps",
			"Mentions economic inequality, economic disparity, or distribution of resources",
			"References measures of inequality (Gini coefficient, income quintiles, etc.)",
			"Discusses policies, trends, or analysis related to economic inequality",
			"Compares economic outcomes across different groups (by income, class, etc.)",
			"Discusses social mobility, economic opportunity, or access to resources",
			"Mentions the middle class, working class, or economic stratification",
		},
		ExclusionCriteria: []string{
			"Articles that only mention inequality in passing without substantive discussion",
			"Articles focused solely on specific policy proposals without inequality context",
			"Articles about inequality in non-economic contexts (e.g., health outcomes alone)",
			"Articles that mention 'inequality' but are actually about other topics",
			"Brief mentions without analysis or discussion of inequality patterns",
		},
		SeedTerms: []string{
			// Core phrases
			"income inequality",
			"wealth inequality",
			"economic inequality",
			"wage gap",
			"wealth gap",
			"income gap",
			"economic disparity",
			"wealth disparity",
			"income distribution",
			"wealth distribution",
			// Measurement terms
			"gini coefficient",
			"income quintile",
			"wealth quintile",
			"top 1%",
			"top 10%",
			"bottom 50%",
			"poverty line",
			"average income",
			"median income",
			"average wealth",
			"median wealth",
			// Related concepts
			"economic mobility",
			"social mobility",
			"class divide",
			"economic stratification",
			"wealth concentration",
			"economic opportunity",
			// Policy terms
			"tax inequality",
			"wealth tax",
			"minimum wage",
			"living wage",
			"economic justice",
			"economic fairness",
			// Single words for partial matching
			"inequality",
			"wealth",
			"income",
			"wage",
			"gap",
			"disparity",
			"distribution",
			"gini",
			"poverty",
			"mobility",
			"stratification",
			"concentration",
			"opportunity",
			"tax reform",
		},
	},
}
