package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examops/examsched-api/internal/models"
	appErrors "github.com/examops/examsched-api/pkg/errors"
)

type fakeParticipantWriter struct {
	batch []models.Participant
	err   error
}

func (f *fakeParticipantWriter) BulkUpsert(_ context.Context, participants []models.Participant) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.batch = participants
	return len(participants), nil
}

func TestImportCSVSuccess(t *testing.T) {
	writer := &fakeParticipantWriter{}
	svc := NewImportService(writer, 0, nil)

	csv := strings.Join([]string{
		"external_ref,last_name,first_name,email",
		"CNE100,Bennis,Omar,omar@example.test",
		"CNE050,Alaoui,Nour,",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, writer.batch, 2)
	assert.Equal(t, "CNE100", writer.batch[0].ExternalRef)
	assert.Equal(t, "omar@example.test", writer.batch[0].Email)
	assert.NotEmpty(t, writer.batch[0].ID)
}

func TestImportCSVHeaderAliases(t *testing.T) {
	writer := &fakeParticipantWriter{}
	svc := NewImportService(writer, 0, nil)

	csv := "cne,nom,prenom\nCNE100,Bennis,Omar\n"
	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, "Bennis", writer.batch[0].LastName)
}

func TestImportCSVSkipsInvalidAndDuplicateRows(t *testing.T) {
	writer := &fakeParticipantWriter{}
	svc := NewImportService(writer, 0, nil)

	csv := strings.Join([]string{
		"external_ref,last_name,first_name",
		"CNE100,Bennis,Omar",
		",Missing,Ref",
		"CNE100,Bennis,Omar",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[1], "duplicate external_ref")
}

func TestImportCSVMissingRequiredColumn(t *testing.T) {
	svc := NewImportService(&fakeParticipantWriter{}, 0, nil)

	csv := "last_name,first_name\nBennis,Omar\n"
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "external_ref")
}

func TestImportCSVRowLimit(t *testing.T) {
	svc := NewImportService(&fakeParticipantWriter{}, 1, nil)

	csv := strings.Join([]string{
		"external_ref,last_name,first_name",
		"CNE100,Bennis,Omar",
		"CNE200,Alaoui,Nour",
	}, "\n")

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "row limit")
}

func TestImportCSVEmptyFile(t *testing.T) {
	svc := NewImportService(&fakeParticipantWriter{}, 0, nil)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(""))
	require.Error(t, err)
}

func TestImportCSVEmptyBodyAfterHeader(t *testing.T) {
	writer := &fakeParticipantWriter{}
	svc := NewImportService(writer, 0, nil)

	result, err := svc.ImportCSV(context.Background(), strings.NewReader("external_ref,last_name,first_name\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Nil(t, writer.batch)
}
