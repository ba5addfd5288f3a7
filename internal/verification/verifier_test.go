package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"formgate/internal/form"
	"formgate/internal/hashstore"
	"formgate/internal/identity/attr"
	"formgate/internal/prefill"
	"formgate/internal/submission"
	"formgate/internal/whitelist"
	"formgate/pkg/crypto/stringbox"
	dErrors "formgate/pkg/domain-errors"
)

func hashOf(t *testing.T, value string) string {
	t.Helper()
	hash, err := hashstore.HashValue(value, bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestVerify(t *testing.T) {
	hashes := map[attr.Internal]string{
		attr.MobileNo: hashOf(t, "+65 91234567"),
		attr.Name:     hashOf(t, "TAN XIAO HUI"),
	}

	responses := []submission.ProcessedResponse{
		{FieldID: "f-mobile", FieldType: form.TypeMobile, Answer: "+65 91234567", IsVisible: true, Attribute: attr.MobileNo},
		{FieldID: "f-name", FieldType: form.TypeShortText, Answer: "TAN XIAO HUI", IsVisible: true, Attribute: attr.Name},
		{FieldID: "f-colour", FieldType: form.TypeShortText, Answer: "blue", IsVisible: true},
	}

	t.Run("matching answers yield exactly the checked set", func(t *testing.T) {
		verified, err := Verify(responses, hashes, nil)
		require.NoError(t, err)
		assert.Len(t, verified, 2)
		assert.Contains(t, verified, "f-mobile")
		assert.Contains(t, verified, "f-name")
		assert.NotContains(t, verified, "f-colour", "untagged fields are never in the verified set")
	})

	t.Run("is idempotent", func(t *testing.T) {
		first, err := Verify(responses, hashes, nil)
		require.NoError(t, err)
		second, err := Verify(responses, hashes, nil)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("any single mismatch fails the whole verification", func(t *testing.T) {
		tampered := append([]submission.ProcessedResponse(nil), responses...)
		tampered[0].Answer = "+65 99999999"

		_, err := Verify(tampered, hashes, nil)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeHashMismatch, dErrors.CodeOf(err))
	})

	t.Run("hidden tagged responses are skipped", func(t *testing.T) {
		hidden := append([]submission.ProcessedResponse(nil), responses...)
		hidden[0].IsVisible = false
		hidden[0].Answer = "+65 99999999"

		verified, err := Verify(hidden, hashes, nil)
		require.NoError(t, err)
		assert.NotContains(t, verified, "f-mobile")
	})

	t.Run("tagged response without a stored hash is not checked", func(t *testing.T) {
		extra := append([]submission.ProcessedResponse(nil), responses...)
		extra = append(extra, submission.ProcessedResponse{
			FieldID: "f-dob", FieldType: form.TypeDate, Answer: "1990-01-15",
			IsVisible: true, Attribute: attr.DateOfBirth,
		})
		verified, err := Verify(extra, hashes, nil)
		require.NoError(t, err)
		assert.NotContains(t, verified, "f-dob")
	})
}

func TestVerifyNormalizesDates(t *testing.T) {
	hashes := map[attr.Internal]string{
		attr.DateOfBirth: hashOf(t, "1990-01-15"),
	}

	for _, answer := range []string{"1990-01-15", "15 Jan 1990"} {
		verified, err := Verify([]submission.ProcessedResponse{
			{FieldID: "f-dob", FieldType: form.TypeDate, Answer: answer, IsVisible: true, Attribute: attr.DateOfBirth},
		}, hashes, nil)
		require.NoError(t, err, "answer %q", answer)
		assert.Contains(t, verified, "f-dob", "answer %q", answer)
	}

	_, err := Verify([]submission.ProcessedResponse{
		{FieldID: "f-dob", FieldType: form.TypeDate, Answer: "16 Jan 1990", IsVisible: true, Attribute: attr.DateOfBirth},
	}, hashes, nil)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeHashMismatch, dErrors.CodeOf(err))
}

// End-to-end prefill-then-verify scenario for a government-verified mobile
// number.
func TestPrefillThenVerifyScenario(t *testing.T) {
	ctx := context.Background()
	hashSvc := hashstore.NewService(hashstore.NewInMemoryStore(), []byte("app-secret"), hashstore.WithCost(bcrypt.MinCost))
	svc := NewService(hashSvc, whitelist.NewService(whitelist.NewInMemoryStore()))

	frm := &form.Form{
		ID: "form-1",
		Fields: []form.Field{
			{ID: "f-mobile", Type: form.TypeMobile, Title: "Mobile", Attribute: attr.MobileNo},
		},
	}

	prefilled := []prefill.Field{{
		Field:      frm.Fields[0],
		FieldValue: "+65 91234567",
		Disabled:   true,
	}}
	require.NoError(t, hashSvc.Save(ctx, "S9812345A", frm.ID, prefilled, time.Minute))

	submit := func(answer string) ([]submission.ProcessedResponse, error) {
		return svc.CheckSubmission(ctx, frm, "S9812345A", []submission.ProcessedResponse{
			{FieldID: "f-mobile", FieldType: form.TypeMobile, Question: "Mobile",
				Answer: answer, IsVisible: true, Attribute: attr.MobileNo},
		})
	}

	t.Run("same value verifies", func(t *testing.T) {
		checked, err := submit("+65 91234567")
		require.NoError(t, err)
		require.Len(t, checked, 1)
		assert.True(t, checked[0].IsUserVerified)
	})

	t.Run("different value is a hash mismatch", func(t *testing.T) {
		_, err := submit("+65 99999999")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeHashMismatch, dErrors.CodeOf(err))
	})

	t.Run("no prior prefill is a missing hash", func(t *testing.T) {
		_, err := svc.CheckSubmission(ctx, frm, "S0000000C", nil)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeMissingHash, dErrors.CodeOf(err))
	})
}

func TestCheckSubmissionWhitelist(t *testing.T) {
	ctx := context.Background()
	hashSvc := hashstore.NewService(hashstore.NewInMemoryStore(), []byte("app-secret"), hashstore.WithCost(bcrypt.MinCost))

	recipient, err := stringbox.GenerateKeyPair()
	require.NoError(t, err)
	msg, err := stringbox.Encrypt([]string{"S9812345A"}, recipient.PublicKey)
	require.NoError(t, err)

	wlStore := whitelist.NewInMemoryStore()
	require.NoError(t, wlStore.Create(ctx, whitelist.Record{
		ID:          "wl-1",
		FormID:      "form-1",
		PublicKey:   msg.PublicKey,
		PrivateKey:  recipient.PrivateKey,
		Nonce:       msg.Nonce,
		CipherTexts: msg.CipherTexts,
	}))
	svc := NewService(hashSvc, whitelist.NewService(wlStore))

	frm := &form.Form{ID: "form-1", WhitelistID: "wl-1"}

	save := func(respondentID string) {
		require.NoError(t, hashSvc.Save(ctx, respondentID, frm.ID, nil, time.Minute))
	}

	t.Run("member passes", func(t *testing.T) {
		save("S9812345A")
		_, err := svc.CheckSubmission(ctx, frm, "S9812345A", nil)
		assert.NoError(t, err)
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		save("S0000000C")
		_, err := svc.CheckSubmission(ctx, frm, "S0000000C", nil)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeNotWhitelisted, dErrors.CodeOf(err))
	})
}
