package access

import "strings"

// Role derivation maps an email address to a catalog role when no stored
// record can say better. Rules are evaluated in order, first match wins;
// later rules are defaults, not overrides, and there is no best-match
// scoring. The rule tables are compiled in — changing them is a redeploy.

// orgDomain is the organization's email domain. Addresses outside it derive
// the viewer fallback.
const orgDomain = "easternmills.com"

// adminEmails is the exact-match allow-list of administrative overrides. It
// is kept separate from the heuristic rules so the two can be audited
// independently.
var adminEmails = map[string]string{
	"abdulansari@easternmills.com":  RoleAdmin,
	"zakir@easternmills.com":        RoleAdmin,
	"sysadmin@easternmills.com":     RoleAdmin,
	"qualityhead@easternmills.com":  RoleQualityManager,
	"merchandhead@easternmills.com": RoleMerchandiser,
}

// deriveRule is a single (predicate, roleID) pair. Predicates receive the
// lowercased local part and domain of the address.
type deriveRule struct {
	match  func(local, domain string) bool
	roleID string
}

func localContains(token string) func(string, string) bool {
	return func(local, _ string) bool {
		return strings.Contains(local, token)
	}
}

// heuristicRules maps department tokens in the local part to that
// department's standard role. Only applied to organization addresses.
var heuristicRules = []deriveRule{
	{localContains("quality"), RoleQualityManager},
	{localContains("inspect"), RoleQualityInspector},
	{localContains("lab"), RoleQualityInspector},
	{localContains("sampling"), RoleSamplingSupervisor},
	{localContains("sample"), RoleSamplingStaff},
	{localContains("merchant"), RoleMerchandiser},
	{localContains("merch"), RoleMerchandiser},
	{localContains("production"), RoleProductionPlanner},
	{localContains("planning"), RoleProductionPlanner},
	{localContains("hr."), RoleHRManager},
	{localContains("hrd"), RoleHRManager},
}

// DeriveRole maps an email address to a catalog role. It is pure and total:
// every string, including empty, malformed and unicode input, yields a valid
// role. The order is exact admin allow-list, then department heuristics for
// organization addresses, then the organization baseline, then the viewer
// fallback for anything else.
func DeriveRole(email string) Role {
	addr := strings.ToLower(strings.TrimSpace(email))

	if roleID, ok := adminEmails[addr]; ok {
		if role, found := LookupRole(roleID); found {
			return role
		}
	}

	local, domain, hasAt := strings.Cut(addr, "@")
	if !hasAt || domain != orgDomain {
		return FallbackRole()
	}

	for _, rule := range heuristicRules {
		if rule.match(local, domain) {
			if role, found := LookupRole(rule.roleID); found {
				return role
			}
		}
	}

	// Organization address with no department token.
	if role, found := LookupRole(RoleEmployee); found {
		return role
	}
	return FallbackRole()
}
