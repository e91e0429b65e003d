package access

import (
	"testing"

	"github.com/examhall/examhall/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		profile model.UserProfile
		want    Surface
	}{
		{"approved user", model.UserProfile{Role: model.RoleUser, IsApproved: true}, SurfaceDashboard},
		{"pending user", model.UserProfile{Role: model.RoleUser, IsApproved: false}, SurfacePending},
		{"admin", model.UserProfile{Role: model.RoleAdmin, IsApproved: true}, SurfaceAdmin},
		// Admins are never held at the approval gate.
		{"unapproved admin", model.UserProfile{Role: model.RoleAdmin, IsApproved: false}, SurfaceAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(&tt.profile); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		surface Surface
		page    Page
		want    Decision
	}{
		{"admin on console", SurfaceAdmin, PageAdmin, Decision{Allow: true}},
		{"admin on dashboard", SurfaceAdmin, PageDashboard, Decision{RedirectTo: PageAdmin}},
		{"admin on exam", SurfaceAdmin, PageExam, Decision{RedirectTo: PageAdmin}},

		{"pending on dashboard", SurfacePending, PageDashboard, Decision{Allow: true}},
		{"pending on exam", SurfacePending, PageExam, Decision{RedirectTo: PageDashboard}},
		{"pending on result", SurfacePending, PageResult, Decision{RedirectTo: PageDashboard}},
		{"pending on console", SurfacePending, PageAdmin, Decision{Forbid: true}},

		{"user on dashboard", SurfaceDashboard, PageDashboard, Decision{Allow: true}},
		{"user on exam", SurfaceDashboard, PageExam, Decision{Allow: true}},
		{"user on result", SurfaceDashboard, PageResult, Decision{Allow: true}},
		{"user on console", SurfaceDashboard, PageAdmin, Decision{Forbid: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.surface, tt.page); got != tt.want {
				t.Errorf("Decide(%q, %q) = %+v, want %+v", tt.surface, tt.page, got, tt.want)
			}
		})
	}
}
