package auth

import (
	"net/http/httptest"
	"testing"
)

func TestHasAtLeast(t *testing.T) {
	cases := []struct {
		name     string
		roles    []string
		required string
		want     bool
	}{
		{name: "viewer meets viewer", roles: []string{"viewer"}, required: RoleViewer, want: true},
		{name: "viewer below editor", roles: []string{"viewer"}, required: RoleEditor, want: false},
		{name: "admin meets quality", roles: []string{"admin"}, required: RoleQuality, want: true},
		{name: "mixed case and spacing", roles: []string{"  Editor "}, required: RoleEditor, want: true},
		{name: "unknown role ignored", roles: []string{"intern"}, required: RoleViewer, want: false},
		{name: "empty roles", roles: nil, required: RoleViewer, want: false},
		{name: "unknown requirement", roles: []string{"admin"}, required: "owner", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasAtLeast(tc.roles, tc.required); got != tc.want {
				t.Fatalf("HasAtLeast(%v, %q) = %v, want %v", tc.roles, tc.required, got, tc.want)
			}
		})
	}
}

func TestRequiredRoleForRequest(t *testing.T) {
	get := httptest.NewRequest("GET", "/nc", nil)
	if got := RequiredRoleForRequest(get); got != RoleViewer {
		t.Fatalf("GET required role = %q, want %q", got, RoleViewer)
	}

	post := httptest.NewRequest("POST", "/nc", nil)
	if got := RequiredRoleForRequest(post); got != RoleEditor {
		t.Fatalf("POST required role = %q, want %q", got, RoleEditor)
	}

	del := httptest.NewRequest("DELETE", "/nc/1", nil)
	if got := RequiredRoleForRequest(del); got != RoleEditor {
		t.Fatalf("DELETE required role = %q, want %q", got, RoleEditor)
	}
}

func TestMethodRoleAuthorizer(t *testing.T) {
	authorize := MethodRoleAuthorizer()

	read := httptest.NewRequest("GET", "/nc", nil)
	if err := authorize(read, Identity{Roles: []string{"viewer"}}); err != nil {
		t.Fatalf("viewer should read: %v", err)
	}

	write := httptest.NewRequest("POST", "/nc", nil)
	if err := authorize(write, Identity{Roles: []string{"viewer"}}); err == nil {
		t.Fatal("viewer should not write")
	}
	if err := authorize(write, Identity{Roles: []string{"editor"}}); err != nil {
		t.Fatalf("editor should write: %v", err)
	}
}
