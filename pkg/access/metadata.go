package access

import "sort"

// Presentation metadata for departments and tabs. Lookups never fail:
// unknown keys come back as themselves so labels degrade gracefully instead
// of rendering empty.

var departmentNames = map[string]string{
	DepartmentQuality:       "Quality Assurance",
	DepartmentSampling:      "Sampling",
	DepartmentMerchandising: "Merchandising",
	DepartmentProduction:    "Production",
	DepartmentHR:            "Human Resources",
	DepartmentAdmin:         "Administration",
	DepartmentNone:          "Unassigned",
}

var tabNames = map[string]map[string]string{
	DepartmentQuality: {
		"dashboard":  "Quality Dashboard",
		"compliance": "Compliance Audits",
		"lab":        "Lab Inspections",
		"audits":     "Final Inspections",
	},
	DepartmentSampling: {
		"create":  "Create New Sample",
		"gallery": "Sample Gallery",
		"costing": "Costing Review",
	},
	DepartmentMerchandising: {
		"orders": "Order Tracking",
		"buyers": "Buyer Directory",
	},
	DepartmentProduction: {
		"schedule": "Production Schedule",
		"tracking": "Lot Tracking",
	},
	DepartmentHR: {
		"employees":  "Employee Records",
		"attendance": "Attendance",
	},
	DepartmentAdmin: {
		"users":    "User Management",
		"settings": "System Settings",
	},
}

// DepartmentName returns the display name for a department, or the ID itself
// when unknown.
func DepartmentName(departmentID string) string {
	if name, ok := departmentNames[departmentID]; ok {
		return name
	}
	return departmentID
}

// TabName returns the display name for a tab within a department, or the tab
// ID itself when either key is unknown.
func TabName(departmentID, tabID string) string {
	if tabs, ok := tabNames[departmentID]; ok {
		if name, ok := tabs[tabID]; ok {
			return name
		}
	}
	return tabID
}

// DepartmentTabs returns the tab IDs known for a department, in stable
// declaration-independent order. Unknown departments yield an empty list.
func DepartmentTabs(departmentID string) []string {
	tabs, ok := tabNames[departmentID]
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(tabs))
	for id := range tabs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
