package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"taskdesk/internal/domain"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

func newStub(t *testing.T, status int, response string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(b), Header: r.Header.Clone()})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api"), &calls
}

func TestTasksSearchBuildsQuery(t *testing.T) {
	c, calls := newStub(t, http.StatusOK, `[{"id":1,"title":"Buy milk","isCompleted":false}]`)
	tasks, err := NewTasksClient(c).Search(context.Background(), domain.TaskFilter{Query: "milk & eggs", OnlyIncomplete: true})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "/api/tasks/search", (*calls)[0].Path)
	require.Equal(t, "onlyIncomplete=true&query=milk+%26+eggs", (*calls)[0].Query)
}

func TestTasksSearchOmitsEmptyQuery(t *testing.T) {
	c, calls := newStub(t, http.StatusOK, `[]`)
	_, err := NewTasksClient(c).Search(context.Background(), domain.TaskFilter{})
	require.NoError(t, err)
	require.Equal(t, "onlyIncomplete=false", (*calls)[0].Query)
}

func TestTasksUpdateSendsJSON(t *testing.T) {
	c, calls := newStub(t, http.StatusOK, `{"id":5,"title":"Ship","isCompleted":true}`)
	c.BearerToken = "tkn"
	task, err := NewTasksClient(c).Update(context.Background(), 5, domain.TaskInput{Title: "Ship", IsCompleted: true})
	require.NoError(t, err)
	require.True(t, task.IsCompleted)

	call := (*calls)[0]
	require.Equal(t, http.MethodPut, call.Method)
	require.Equal(t, "/api/tasks/5", call.Path)
	require.Equal(t, "application/json", call.Header.Get("Content-Type"))
	require.Equal(t, "Bearer tkn", call.Header.Get("Authorization"))
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(call.Body), &sent))
	require.Equal(t, float64(5), sent["id"])
	require.Equal(t, true, sent["isCompleted"])
}

func TestExportURL(t *testing.T) {
	c := NewTasksClient(New("http://tasks.local/api/"))
	f := domain.TaskFilter{Query: "report", OnlyIncomplete: false}
	require.Equal(t, "http://tasks.local/api/tasks/export?onlyIncomplete=false&query=report", c.ExportURL(f, ExportSpreadsheet))
	require.Equal(t, "http://tasks.local/api/tasks/export/csv?onlyIncomplete=false&query=report", c.ExportURL(f, ExportCSV))
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
		target error
	}{
		{http.StatusNotFound, KindNotFound, ErrNotFound},
		{http.StatusBadRequest, KindValidationFailed, ErrValidationFailed},
		{http.StatusUnprocessableEntity, KindValidationFailed, ErrValidationFailed},
		{http.StatusInternalServerError, KindServerError, ErrServerError},
		{http.StatusBadGateway, KindServerError, ErrServerError},
	}
	for _, tc := range cases {
		c, _ := newStub(t, tc.status, `{"error":{"code":"x","message":"nope"}}`)
		err := NewUsersClient(c).Delete(context.Background(), 3)
		require.Error(t, err)
		var re *RequestError
		require.True(t, errors.As(err, &re))
		require.Equal(t, tc.status, re.StatusCode)
		require.Equal(t, tc.kind, KindOf(err))
		require.ErrorIs(t, err, tc.target)
		require.Contains(t, re.Body, "nope")
	}
}

func TestNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewUsersClient(New(base)).List(context.Background())
	require.Error(t, err)
	require.Equal(t, KindNetworkUnavailable, KindOf(err))
	require.ErrorIs(t, err, ErrNetworkUnavailable)
	require.Zero(t, StatusOf(err))
}

func TestMalformedResponseIsDecodeError(t *testing.T) {
	c, _ := newStub(t, http.StatusOK, `{"not":"a list"}`)
	_, err := NewCommentsClient(c).ListByTask(context.Background(), 1)
	var de *DecodeError
	require.ErrorAs(t, err, &de)

	c, _ = newStub(t, http.StatusOK, `[{"id":0,"name":""}]`)
	_, err = NewUsersClient(c).ListActive(context.Background())
	require.ErrorAs(t, err, &de)
}

func TestCommentsPaths(t *testing.T) {
	c, calls := newStub(t, http.StatusOK, `[]`)
	_, err := NewCommentsClient(c).ListByTask(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, "/api/comments/task/12", (*calls)[0].Path)

	c, calls = newStub(t, http.StatusNoContent, ``)
	require.NoError(t, NewCommentsClient(c).Delete(context.Background(), 4))
	require.Equal(t, http.MethodDelete, (*calls)[0].Method)
	require.Equal(t, "/api/comments/4", (*calls)[0].Path)
}
