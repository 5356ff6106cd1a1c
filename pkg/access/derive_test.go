package access

import "testing"

func TestDeriveRole_AdminAllowList(t *testing.T) {
	role := DeriveRole("abdulansari@easternmills.com")
	if role.ID != RoleAdmin {
		t.Errorf("DeriveRole() = %q, want %q", role.ID, RoleAdmin)
	}
	if role.Department != DepartmentAdmin {
		t.Errorf("Department = %q, want %q", role.Department, DepartmentAdmin)
	}
}

func TestDeriveRole_AllowListBeatsHeuristics(t *testing.T) {
	// qualityhead contains the "quality" token but the exact-match entry
	// must win over the heuristic.
	role := DeriveRole("qualityhead@easternmills.com")
	if role.ID != RoleQualityManager {
		t.Errorf("DeriveRole() = %q, want %q", role.ID, RoleQualityManager)
	}
}

func TestDeriveRole_Heuristics(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"quality.team@easternmills.com", RoleQualityManager},
		{"lab.tech@easternmills.com", RoleQualityInspector},
		{"sampling.desk@easternmills.com", RoleSamplingSupervisor},
		{"sample.room@easternmills.com", RoleSamplingStaff},
		{"merchandising@easternmills.com", RoleMerchandiser},
		{"production.floor@easternmills.com", RoleProductionPlanner},
		{"hr.office@easternmills.com", RoleHRManager},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := DeriveRole(tt.email); got.ID != tt.want {
				t.Errorf("DeriveRole(%q) = %q, want %q", tt.email, got.ID, tt.want)
			}
		})
	}
}

func TestDeriveRole_OrganizationBaseline(t *testing.T) {
	role := DeriveRole("somebody@easternmills.com")
	if role.ID != RoleEmployee {
		t.Errorf("DeriveRole() = %q, want %q", role.ID, RoleEmployee)
	}
}

func TestDeriveRole_ExternalFallsBackToViewer(t *testing.T) {
	tests := []string{
		"buyer@example.com",
		"quality@othermill.com", // department token outside the org domain
	}
	for _, email := range tests {
		if got := DeriveRole(email); got.ID != RoleViewer {
			t.Errorf("DeriveRole(%q) = %q, want %q", email, got.ID, RoleViewer)
		}
	}
}

// DeriveRole must return a valid role for every string and never panic.
func TestDeriveRole_Totality(t *testing.T) {
	inputs := []string{
		"",
		"@",
		"@@",
		"no-at-sign",
		"trailing@",
		"@easternmills.com",
		"  spaced@easternmills.com  ",
		"UPPER@EASTERNMILLS.COM",
		"ünïcödé@easternmills.com",
		"名前@easternmills.com",
		"a@b@c@easternmills.com",
		string([]byte{0x00, 0xff}),
	}

	for _, email := range inputs {
		role := DeriveRole(email)
		if role.ID == "" {
			t.Errorf("DeriveRole(%q) returned role with empty ID", email)
		}
		if _, ok := LookupRole(role.ID); !ok {
			t.Errorf("DeriveRole(%q) returned non-catalog role %q", email, role.ID)
		}
	}
}

func TestDeriveRole_CaseInsensitive(t *testing.T) {
	role := DeriveRole("ABDULANSARI@EasternMills.com")
	if role.ID != RoleAdmin {
		t.Errorf("DeriveRole() = %q, want %q", role.ID, RoleAdmin)
	}
}
