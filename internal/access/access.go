// Package access decides which surface a profile may use. The decision is
// recomputed on every page load; nothing here is cached.
package access

import "github.com/examhall/examhall/internal/model"

// Surface is the portal area a profile is routed to.
type Surface string

const (
	// SurfaceAdmin is the admin console.
	SurfaceAdmin Surface = "admin"
	// SurfaceDashboard is the exam catalog and exam/result pages.
	SurfaceDashboard Surface = "dashboard"
	// SurfacePending is the dashboard with exam content replaced by the
	// pending-approval notice.
	SurfacePending Surface = "pending"
)

// Page classifies the pages the resolver arbitrates between.
type Page string

const (
	PageDashboard Page = "dashboard"
	PageExam      Page = "exam"
	PageResult    Page = "result"
	PageAdmin     Page = "admin"
)

// Resolve derives the surface for a profile. Callers must have already
// handled the missing-profile case; Resolve never sees a nil profile.
func Resolve(p *model.UserProfile) Surface {
	if p.Role == model.RoleAdmin {
		return SurfaceAdmin
	}
	if !p.IsApproved {
		return SurfacePending
	}
	return SurfaceDashboard
}

// Decision is the outcome of checking a page against a surface.
type Decision struct {
	// Allow means the page may render for this surface.
	Allow bool
	// RedirectTo is the page to send the user to instead, when not allowed.
	RedirectTo Page
	// Forbid means the session must be ended and the user returned to the
	// entry page (a non-admin reaching the admin console).
	Forbid bool
}

// Decide checks whether a surface may view a page.
//
// Admins have exactly one surface: any other page bounces to the console.
// Pending users keep the dashboard page itself but nothing further.
func Decide(surface Surface, page Page) Decision {
	switch surface {
	case SurfaceAdmin:
		if page == PageAdmin {
			return Decision{Allow: true}
		}
		return Decision{RedirectTo: PageAdmin}
	case SurfacePending:
		switch page {
		case PageDashboard:
			return Decision{Allow: true}
		case PageAdmin:
			return Decision{Forbid: true}
		default:
			return Decision{RedirectTo: PageDashboard}
		}
	default:
		if page == PageAdmin {
			return Decision{Forbid: true}
		}
		return Decision{Allow: true}
	}
}
