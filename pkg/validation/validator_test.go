package validation

import (
	"strings"
	"testing"
)

func TestValidateCheckRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *CheckRequest
		wantErr bool
	}{
		{"Valid with tier", &CheckRequest{UserID: "user-1", RequiredTier: "PRO"}, false},
		{"Valid without tier", &CheckRequest{UserID: "user-1"}, false},
		{"Missing user", &CheckRequest{RequiredTier: "PRO"}, true},
		{"Bad tier", &CheckRequest{UserID: "user-1", RequiredTier: "GOLD"}, true},
		{"Oversized user id", &CheckRequest{UserID: strings.Repeat("x", 65)}, true},
		{"Nil request", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCheckRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCheckRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRedeemRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *RedeemRequest
		wantErr bool
	}{
		{"Valid", &RedeemRequest{UserID: "user-1", Key: "AAAAA-BBBBB"}, false},
		{"Missing key", &RedeemRequest{UserID: "user-1"}, true},
		{"Blank key", &RedeemRequest{UserID: "user-1", Key: "   "}, true},
		{"Missing user", &RedeemRequest{Key: "AAAAA-BBBBB"}, true},
		{"Oversized key", &RedeemRequest{UserID: "user-1", Key: strings.Repeat("K", 257)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRedeemRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRedeemRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIssueRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *IssueRequest
		wantErr bool
	}{
		{"Valid", &IssueRequest{Tier: "BASIC", Count: 10}, false},
		{"Count omitted", &IssueRequest{Tier: "PRO"}, false},
		{"Missing tier", &IssueRequest{Count: 1}, true},
		{"Unknown tier", &IssueRequest{Tier: "ULTIMATE", Count: 1}, true},
		{"Too many keys", &IssueRequest{Tier: "FREE", Count: 501}, true},
		{"Negative count", &IssueRequest{Tier: "FREE", Count: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIssueRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIssueRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorMessages(t *testing.T) {
	err := ValidateIssueRequest(&IssueRequest{Tier: "ULTIMATE"})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("Error message = %q, want oneof explanation", err.Error())
	}

	err = ValidateCheckRequest(&CheckRequest{})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "field is required") {
		t.Errorf("Error message = %q, want required explanation", err.Error())
	}
}
