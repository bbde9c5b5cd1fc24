package router

import "testing"

func TestIsActive(t *testing.T) {
	tests := []struct {
		current, href string
		exact         bool
		want          bool
	}{
		{"/account", "/account", true, true},
		{"/account/api", "/account", true, false},
		{"/account/api", "/account", false, true},
		{"/account/", "/account", true, true},
		{"/accounts", "/account", false, false},
		{"/server/a\\b", "/server", false, false},
	}
	for _, tt := range tests {
		if got := IsActive(tt.current, tt.href, tt.exact); got != tt.want {
			t.Errorf("IsActive(%q, %q, %v) = %v, want %v", tt.current, tt.href, tt.exact, got, tt.want)
		}
	}
}

func TestLinkConstructors(t *testing.T) {
	if l := Link("Return Home", "/"); l.Active || l.External || l.Href != "/" {
		t.Errorf("Link() = %+v", l)
	}
	if l := ExternalLink("Admin", "/admin/servers/view/3"); !l.External {
		t.Errorf("ExternalLink() = %+v, want External", l)
	}
	if l := NavLink("API Credentials", "/account/api", "/account/api", false); !l.Active {
		t.Errorf("NavLink() = %+v, want Active", l)
	}
}
