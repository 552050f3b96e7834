package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexiCode_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    FlexiCode
		wantErr bool
	}{
		{name: "string code", body: `{"code":"123456"}`, want: "123456"},
		{name: "number code", body: `{"code":654321}`, want: "654321"},
		{name: "number with lost leading zero", body: `{"code":12345}`, want: "012345"},
		{name: "negative number", body: `{"code":-1}`, wantErr: true},
		{name: "boolean", body: `{"code":true}`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var req VerifyCodeReq
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Code)
		})
	}
}

func TestOwner_Owns(t *testing.T) {
	userLink := &Link{OwnerID: "u1"}
	guestLink := &Link{GuestID: "g1"}

	tests := []struct {
		name  string
		owner Owner
		link  *Link
		want  bool
	}{
		{name: "user owns own link", owner: Owner{UserID: "u1"}, link: userLink, want: true},
		{name: "other user", owner: Owner{UserID: "u2"}, link: userLink, want: false},
		{name: "guest owns own link", owner: Owner{GuestID: "g1"}, link: guestLink, want: true},
		{name: "other guest", owner: Owner{GuestID: "g2"}, link: guestLink, want: false},
		{name: "guest cannot touch account link", owner: Owner{GuestID: "g1"}, link: &Link{OwnerID: "u1", GuestID: "g1"}, want: false},
		{name: "user cannot touch guest link", owner: Owner{UserID: "g1"}, link: guestLink, want: false},
		{name: "nobody", owner: Owner{}, link: guestLink, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.owner.Owns(tt.link))
		})
	}
}

func TestAliasReq_Alias(t *testing.T) {
	assert.Equal(t, "new", AliasReq{CustomizedEndpoint: "new", CustomizedEnpoint: "old"}.Alias())
	assert.Equal(t, "old", AliasReq{CustomizedEnpoint: "old"}.Alias())
}
