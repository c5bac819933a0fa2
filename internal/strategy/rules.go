package strategy

import "github.com/ppiankov/filingqa/internal/model"

// rule inspects the input and either claims it with a plan or passes
type rule func(in ruleInput) (Plan, bool)

// rules is evaluated in order; the first rule that matches wins
var rules = []rule{
	insiderRule,
	riskFactorsRule,
	mdaRule,
	proxyRule,
	comparisonRule,
	defaultRule,
}

// insiderPriority orders insider forms by information density
var insiderPriority = []string{model.Form4, model.Form3, model.Form5}

func insiderRule(in ruleInput) (Plan, bool) {
	var forms []string
	for _, f := range insiderPriority {
		if in.docs[f] {
			forms = append(forms, f)
		}
	}
	if len(forms) == 0 && !in.mentions("insider", "trading") {
		return Plan{}, false
	}
	if len(forms) == 0 {
		forms = []string{model.Form4}
	}

	plan := Plan{Description: "Insider trading targeted", Reason: ReasonExplicit}
	for _, c := range in.companies {
		for _, f := range forms {
			plan.Targets = append(plan.Targets, model.RetrievalTarget{
				Ticker:       c,
				DocumentType: f,
				Sections:     []string{},
				Tier:         model.TierExplicit,
			})
		}
	}
	return plan, true
}

func riskFactorsRule(in ruleInput) (Plan, bool) {
	if !in.docs[model.Form10K] && !in.mentions("risk", "factor") {
		return Plan{}, false
	}
	return perCompany("10-K Risk factors (Item 1A)", ReasonExplicit, in.companies,
		model.Form10K, []string{"1A"}, model.TierExplicit), true
}

func mdaRule(in ruleInput) (Plan, bool) {
	if !in.docs[model.Form10Q] && !in.mentions("md&a", "management discussion") {
		return Plan{}, false
	}
	return perCompany("10-Q MD&A (part1item2)", ReasonExplicit, in.companies,
		model.Form10Q, []string{"part1item2"}, model.TierExplicit), true
}

func proxyRule(in ruleInput) (Plan, bool) {
	if !in.docs[model.FormDEF14A] && !in.mentions("compensation", "proxy") {
		return Plan{}, false
	}
	return perCompany("Proxy / compensation", ReasonExplicit, in.companies,
		model.FormDEF14A, []string{}, model.TierExplicit), true
}

// comparisonRule fans out to every company, not just the first two
func comparisonRule(in ruleInput) (Plan, bool) {
	if in.query.QueryType != model.QueryMultiTicker {
		return Plan{}, false
	}
	return perCompany("Multi-company comparison (10-K 1A)", ReasonQueryType, in.allCompanies,
		model.Form10K, []string{"1A"}, model.TierQueryTypeDerived), true
}

func defaultRule(in ruleInput) (Plan, bool) {
	if !in.allowDefault || len(in.companies) == 0 {
		return Plan{Description: "No matching rule", Reason: ReasonNoMatch}, true
	}
	return perCompany("Default targeted (single 10-K 1A)", ReasonDefault, in.companies[:1],
		model.Form10K, []string{"1A"}, model.TierDefault), true
}

func perCompany(desc, reason string, companies []string, form string, sections []string, tier model.Tier) Plan {
	plan := Plan{Description: desc, Reason: reason}
	for _, c := range companies {
		plan.Targets = append(plan.Targets, model.RetrievalTarget{
			Ticker:       c,
			DocumentType: form,
			Sections:     append([]string{}, sections...),
			Tier:         tier,
		})
	}
	return plan
}
