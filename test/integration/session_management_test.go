package integration

import (
	"net/http"
	"testing"
)

func TestSessionsAreIndependentPerDevice(t *testing.T) {
	srv := newTestServer(t, nil)
	phone := srv.login(t, "/auth/signup", credentials("phone"))
	tablet := srv.login(t, "/auth/login", credentials("tablet"))

	for _, token := range []string{phone.Token, tablet.Token} {
		if resp, _ := srv.do(t, http.MethodGet, "/api/auth/validate", token, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("expected both device sessions valid, got %d", resp.StatusCode)
		}
	}

	if resp, _ := srv.do(t, http.MethodPost, "/api/auth/logout", phone.Token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}
	resp, env := srv.do(t, http.MethodGet, "/api/auth/validate", phone.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized || errorCode(env) != "TOKEN_MISMATCH" {
		t.Fatalf("expected logged-out session rejected, got %d %s", resp.StatusCode, errorCode(env))
	}
	if resp, _ := srv.do(t, http.MethodGet, "/api/auth/validate", tablet.Token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected other device untouched, got %d", resp.StatusCode)
	}
}

func TestDeletingDeviceRevokesItsSession(t *testing.T) {
	srv := newTestServer(t, nil)
	phone := srv.login(t, "/auth/signup", credentials("phone"))
	tablet := srv.login(t, "/auth/login", credentials("tablet"))

	if resp, _ := srv.do(t, http.MethodDelete, "/api/device/tablet", phone.Token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete device failed: %d", resp.StatusCode)
	}
	resp, env := srv.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": tablet.RefreshToken})
	if resp.StatusCode != http.StatusUnauthorized || errorCode(env) != "TOKEN_MISMATCH" {
		t.Fatalf("expected revoked refresh, got %d %s", resp.StatusCode, errorCode(env))
	}
	if resp, _ := srv.do(t, http.MethodGet, "/api/auth/validate", phone.Token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected calling device to stay signed in, got %d", resp.StatusCode)
	}
}

func TestAccountDeletionRemovesEverySession(t *testing.T) {
	srv := newTestServer(t, nil)
	phone := srv.login(t, "/auth/signup", credentials("phone"))
	tablet := srv.login(t, "/auth/login", credentials("tablet"))

	if resp, _ := srv.do(t, http.MethodDelete, "/api/user", phone.Token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete user failed: %d", resp.StatusCode)
	}
	for _, token := range []string{phone.Token, tablet.Token} {
		if resp, _ := srv.do(t, http.MethodGet, "/api/auth/validate", token, nil); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected session gone after account deletion, got %d", resp.StatusCode)
		}
	}
	resp, env := srv.do(t, http.MethodGet, "/auth/email?email=lin@example.com", "", nil)
	if resp.StatusCode != http.StatusOK || string(env.Data) != `{"inUse":false}` {
		t.Fatalf("expected email released, got %d %s", resp.StatusCode, env.Data)
	}
}
