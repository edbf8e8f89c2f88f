package validation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsValidEthAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"valid lowercase", "0x722122df12d4e14e13ac3b6895a86e84145b6967", true},
		{"valid mixed case", "0x722122DF12D4e14e13Ac3b6895a86e84145b6967", true},
		{"missing prefix", "722122df12d4e14e13ac3b6895a86e84145b6967", false},
		{"too short", "0x722122df12d4e14e13ac3b6895a86e84145b69", false},
		{"too long", "0x722122df12d4e14e13ac3b6895a86e84145b6967ff", false},
		{"non-hex chars", "0x722122df12d4e14e13ac3b6895a86e84145b69zz", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEthAddress(tt.addr); got != tt.want {
				t.Errorf("IsValidEthAddress(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestSanitizeAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "0x722122DF12D4E14E13AC3B6895A86E84145B6967", "0x722122df12d4e14e13ac3b6895a86e84145b6967"},
		{"trims whitespace", "  0xdd4c48c0b24039969fc16d1cdf626eab821d3384  ", "0xdd4c48c0b24039969fc16d1cdf626eab821d3384"},
		{"adds prefix to bare 40 hex", "DD4C48C0B24039969FC16D1CDF626EAB821D3384", "0xdd4c48c0b24039969fc16d1cdf626eab821d3384"},
		{"leaves short strings alone", "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeAddress(tt.in); got != tt.want {
				t.Errorf("SanitizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	errs := Validate(
		Required("from_address", ""),
		ValidAddress("to_address", "0xnotanaddress"),
		PositiveAmount("amount", -1),
	)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}

	errs = Validate(
		Required("from_address", "0x722122df12d4e14e13ac3b6895a86e84145b6967"),
		ValidAddress("from_address", "0x722122df12d4e14e13ac3b6895a86e84145b6967"),
		PositiveAmount("amount", 1.5),
	)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestAddressParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/analyze/:address", AddressParamMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analyze/0x722122df12d4e14e13ac3b6895a86e84145b6967", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid address: got %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/analyze/nothex", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid address: got %d, want 400", w.Code)
	}
}
