package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() Registration {
	return Registration{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Phone:     "0712345678",
		Password:  "secret1",
	}
}

func paths(t *testing.T, err error) []string {
	t.Helper()
	var verrs Errors
	require.True(t, errors.As(err, &verrs), "expected validation.Errors, got %v", err)
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, strings.Join(fe.Path, "."))
	}
	return out
}

func TestValidateRegistration(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		mutate    func(r *Registration)
		wantPaths []string
	}{
		{name: "valid", mutate: func(r *Registration) {}},
		{name: "empty referral code allowed", mutate: func(r *Registration) { r.ReferralCode = "" }},
		{name: "valid referral code", mutate: func(r *Registration) { r.ReferralCode = "ABC123" }},
		{
			name:      "short phone and password",
			mutate:    func(r *Registration) { r.Phone = "12345"; r.Password = "ab" },
			wantPaths: []string{"phone", "password"},
		},
		{
			name:      "phone with letters",
			mutate:    func(r *Registration) { r.Phone = "07123abc678" },
			wantPaths: []string{"phone"},
		},
		{
			name:      "phone too long",
			mutate:    func(r *Registration) { r.Phone = "1234567890123456" },
			wantPaths: []string{"phone"},
		},
		{
			name:      "bad email",
			mutate:    func(r *Registration) { r.Email = "jane-at-x" },
			wantPaths: []string{"email"},
		},
		{
			name:      "referral code not alphanumeric",
			mutate:    func(r *Registration) { r.ReferralCode = "AB-12" },
			wantPaths: []string{"referralCode"},
		},
		{
			name:      "referral code too short",
			mutate:    func(r *Registration) { r.ReferralCode = "AB" },
			wantPaths: []string{"referralCode"},
		},
		{
			name:      "first name too long",
			mutate:    func(r *Registration) { r.FirstName = strings.Repeat("a", 51) },
			wantPaths: []string{"firstName"},
		},
		{
			name:      "everything missing",
			mutate:    func(r *Registration) { *r = Registration{} },
			wantPaths: []string{"firstName", "lastName", "email", "phone", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration()
			tt.mutate(&reg)
			err := v.Validate(SchemaRegistration, &reg)
			if tt.wantPaths == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantPaths, paths(t, err))
		})
	}
}

func TestValidateMessages(t *testing.T) {
	v := New()
	reg := validRegistration()
	reg.FirstName = "J"
	reg.Phone = "12345"

	err := v.Validate(SchemaRegistration, reg)
	var verrs Errors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, `"firstName" length must be at least 2 characters long`, verrs[0].Message)
	assert.Equal(t, "Phone number must be between 10 and 15 digits.", verrs[1].Message)
}

func TestValidateLogin(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(SchemaLogin, &Login{Email: "a@b.co", Password: "x"}))
	assert.Equal(t, []string{"email", "password"}, paths(t, v.Validate(SchemaLogin, &Login{})))
}

func TestValidateSchemaMismatch(t *testing.T) {
	v := New()

	assert.ErrorIs(t, v.Validate("unknown", &Login{}), ErrUnknownSchema)
	assert.ErrorIs(t, v.Validate(SchemaLogin, &Registration{}), ErrPayloadMismatch)
}

func TestDecodeMergesTypeErrors(t *testing.T) {
	v := New()
	var reg Registration
	body := []byte(`{"firstName":"Jane","lastName":"D","email":"jane@x.com","phone":712345678,"password":"secret1"}`)

	err := v.Decode(SchemaRegistration, body, &reg)
	var verrs Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"phone", "lastName"}, paths(t, err))
	assert.Equal(t, `"phone" must be a string`, verrs[0].Message)
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	v := New()
	var login Login

	err := v.Decode(SchemaLogin, []byte(`{"email":`), &login)
	var verrs Errors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "Body is invalid JSON", verrs[0].Message)
}

func TestDecodeRequiresObject(t *testing.T) {
	v := New()

	for _, body := range []string{`[]`, `[{"email":"a@b.co"}]`, `"text"`, `42`, `null`} {
		t.Run(body, func(t *testing.T) {
			var reg Registration
			err := v.Decode(SchemaRegistration, []byte(body), &reg)
			var verrs Errors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, `"value" must be of type object`, verrs[0].Message)
			assert.Empty(t, verrs[0].Path)
			assert.NotContains(t, verrs[0].Message, "validation.")
		})
	}
}

func TestDecodeEmptyBodyReportsRequiredFields(t *testing.T) {
	v := New()
	var login Login

	err := v.Decode(SchemaLogin, nil, &login)
	assert.Equal(t, []string{"email", "password"}, paths(t, err))
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	v := New()
	var reg Registration
	body := []byte(`{"firstName":"Jane","lastName":"Doe","email":"jane@x.com","phone":"0712345678",` +
		`"password":"secret1","role":"admin","isAdmin":true}`)

	err := v.Decode(SchemaRegistration, body, &reg)
	var verrs Errors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, `"isAdmin" is not allowed`, verrs[0].Message)
	assert.Equal(t, []string{"isAdmin"}, verrs[0].Path)
	assert.Equal(t, `"role" is not allowed`, verrs[1].Message)
}

func TestDecodeValidatesTrimmedNames(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		first     string
		last      string
		wantPaths []string
		wantMsgs  []string
	}{
		{
			name:      "whitespace only",
			first:     "  ",
			last:      "Doe",
			wantPaths: []string{"firstName"},
			wantMsgs:  []string{`"firstName" is required`},
		},
		{
			name:      "one character after trim",
			first:     "Jane",
			last:      " D",
			wantPaths: []string{"lastName"},
			wantMsgs:  []string{`"lastName" length must be at least 2 characters long`},
		},
		{name: "padded but long enough", first: "  Jo ", last: " Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(map[string]string{
				"firstName": tt.first,
				"lastName":  tt.last,
				"email":     " jane@x.com ",
				"phone":     "0712345678",
				"password":  " secret1 ",
			})
			require.NoError(t, err)

			var reg Registration
			err = v.Decode(SchemaRegistration, payload, &reg)
			if tt.wantPaths == nil {
				require.NoError(t, err)
				assert.Equal(t, "Jo", reg.FirstName)
				assert.Equal(t, "Doe", reg.LastName)
				assert.Equal(t, "jane@x.com", reg.Email)
				assert.Equal(t, " secret1 ", reg.Password)
				return
			}
			assert.Equal(t, tt.wantPaths, paths(t, err))
			var verrs Errors
			require.ErrorAs(t, err, &verrs)
			for i, msg := range tt.wantMsgs {
				assert.Equal(t, msg, verrs[i].Message)
			}
		})
	}
}

func TestDecodeUnknownSchema(t *testing.T) {
	v := New()
	assert.ErrorIs(t, v.Decode("unknown", []byte(`{}`), &Login{}), ErrUnknownSchema)
}
