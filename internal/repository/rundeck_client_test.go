package repository_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/repository"
)

const jobsXML = `<result success="true" apiversion="2">
  <jobs count="2">
    <job id="1"><name>a</name><group>ops</group><project>billing</project><description>first</description></job>
    <job id="2"><name>b</name><group/><project>billing</project><description/></job>
  </jobs>
</result>`

const errorXML = `<result error="true" apiversion="14">
  <error><message>Job ID does not exist: 99</message></error>
</result>`

const importXML = `<result success="true" apiversion="14">
  <succeeded count="1"><job index="1"><id>abc</id><name>sync</name><group>console</group><project>billing</project></job></succeeded>
  <failed count="1"><job index="2"><name>broken</name><error>Invalid script</error></job></failed>
  <skipped count="0"></skipped>
</result>`

type MockHttpClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockHttpClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

// recordedRequest is what the fake Rundeck server saw
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Header http.Header
}

type fakeRundeck struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]string
}

func newFakeRundeck(t *testing.T, routes map[string]string) (*fakeRundeck, *httptest.Server) {
	fake := &fakeRundeck{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))

		fake.mu.Lock()
		fake.requests = append(fake.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Form:   form,
			Header: r.Header.Clone(),
		})
		fake.mu.Unlock()

		resp, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)

	return fake, srv
}

func (f *fakeRundeck) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeRundeck) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(srv *httptest.Server, opts ...repository.Option) *repository.Client {
	return repository.NewClient(srv.URL+"/", "secret-token", "billing", srv.Client(), discardLogger(), opts...)
}

func TestFetchRaw(t *testing.T) {
	ctx := context.Background()

	t.Run("should send auth, accept and user agent headers on GET", func(t *testing.T) {
		fake, srv := newFakeRundeck(t, map[string]string{"/api/1/system/info": "<system/>"})
		client := newTestClient(srv)

		body, err := client.FetchRaw(ctx, repository.AcceptText, "/api/1/system/info", url.Values{"a": {"b c"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "<system/>", body)

		req := fake.last()
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "secret-token", req.Header.Get("X-Rundeck-Auth-Token"))
		assert.Equal(t, "text/plain", req.Header.Get("Accept"))
		assert.Equal(t, repository.DefaultUserAgent, req.Header.Get("User-Agent"))
		assert.Equal(t, "b c", req.Query.Get("a"))
	})
	t.Run("should POST a urlencoded form when post fields are given", func(t *testing.T) {
		fake, srv := newFakeRundeck(t, map[string]string{"/api/x": "ok"})
		client := newTestClient(srv, repository.WithUserAgent("custom/2"))

		_, err := client.FetchRaw(ctx, repository.AcceptXML, "/api/x", nil, url.Values{"k": {"v"}})
		require.NoError(t, err)

		req := fake.last()
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		assert.Equal(t, "custom/2", req.Header.Get("User-Agent"))
		assert.Equal(t, "v", req.Form.Get("k"))
	})
	t.Run("should return an api error for xml documents flagged as errors", func(t *testing.T) {
		_, srv := newFakeRundeck(t, map[string]string{"/api/1/job/99/run": errorXML})
		client := newTestClient(srv)

		_, err := client.FetchRaw(ctx, repository.AcceptXML, "/api/1/job/99/run", nil, nil)

		var apiErr *repository.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "/api/1/job/99/run", apiErr.Path)
		assert.Equal(t, "Job ID does not exist: 99", apiErr.Message)
	})
	t.Run("should return a transport error when no response is received", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		client := repository.NewClient("http://rundeck.invalid", "t", "p", &MockHttpClient{
			DoFunc: func(req *http.Request) (*http.Response, error) {
				return nil, cause
			},
		}, discardLogger())

		_, err := client.FetchRaw(ctx, repository.AcceptText, "/api/1/system/info", nil, nil)

		var transportErr *repository.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestFetchTree(t *testing.T) {
	ctx := context.Background()

	t.Run("should fall back to json", func(t *testing.T) {
		_, srv := newFakeRundeck(t, map[string]string{"/api/1/projects": `[{"name":"billing"}]`})

		doc, err := newTestClient(srv).FetchTree(ctx, repository.AcceptJSON, "/api/1/projects", nil, nil)
		require.NoError(t, err)
		assert.Nil(t, doc.XML)
		assert.Equal(t, []any{map[string]any{"name": "billing"}}, doc.Value())
	})
	t.Run("should fail with a parse error for other bodies", func(t *testing.T) {
		_, srv := newFakeRundeck(t, map[string]string{"/api/x": "plain words"})

		_, err := newTestClient(srv).FetchTree(ctx, repository.AcceptXML, "/api/x", nil, nil)

		var parseErr *repository.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "plain words", parseErr.Body)
	})
}

func TestGetJobs(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeRundeck(t, map[string]string{"/api/2/project/billing/jobs": jobsXML})
	client := newTestClient(srv)

	t.Run("should key flattened jobs by id", func(t *testing.T) {
		jobs, err := client.GetJobs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, jobs.Keys())

		first, _ := jobs.Get("1")
		assert.Equal(t, model.Record{
			"id":          "1",
			"name":        "a",
			"group":       "ops",
			"project":     "billing",
			"description": "first",
		}, first)
		assert.Equal(t, "text/xml", fake.last().Header.Get("Accept"))
	})
	t.Run("should find a job id by name", func(t *testing.T) {
		id, found, err := client.GetJobIDByName(ctx, "b")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "2", id)

		_, found, err = client.GetJobIDByName(ctx, "c")
		require.NoError(t, err)
		assert.False(t, found)
	})
	t.Run("should use the project of a derived client", func(t *testing.T) {
		other := client.WithProject("ops")
		_, err := other.GetJobs(ctx)

		var parseErr *repository.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "/api/2/project/ops/jobs", fake.last().Path)
		assert.Equal(t, "billing", client.Project())
	})
}

func TestRunJob(t *testing.T) {
	fake, srv := newFakeRundeck(t, map[string]string{"/api/1/job/1/run": executionXML("", false, "")})

	executions, err := newTestClient(srv).RunJob(context.Background(), "1", []model.JobArgument{
		{Name: "foo", Value: `bar"baz`},
		{Name: "env", Value: "prod"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, executions.Keys())

	req := fake.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, `-foo "bar""baz" -env "prod" `, req.Query.Get("argString"))
}

func TestEncodeArgString(t *testing.T) {
	assert.Equal(t, "", repository.EncodeArgString(nil))
	assert.Contains(t, repository.EncodeArgString([]model.JobArgument{{Name: "foo", Value: `bar"baz`}}), `-foo "bar""baz" `)
	assert.NotContains(t, repository.EncodeArgString([]model.JobArgument{{Name: "foo", Value: `bar"baz`}}), `\"`)
}

func TestImportJobs(t *testing.T) {
	fake, srv := newFakeRundeck(t, map[string]string{"/api/14/jobs/import": importXML})

	result, err := newTestClient(srv).ImportJobs(context.Background(), "<joblist/>")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "sync", result.Jobs[0].Text("name"))
	assert.Equal(t, []string{"broken: Invalid script"}, result.Errors)

	req := fake.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "update", req.Query.Get("dupeOption"))
	assert.Equal(t, "remove", req.Query.Get("uuidOption"))
	assert.Equal(t, "billing", req.Query.Get("project"))
	assert.Equal(t, "<joblist/>", req.Query.Get("xmlBatch"))
}

func TestGetExecutionOutput(t *testing.T) {
	fake, srv := newFakeRundeck(t, map[string]string{"/api/5/execution/42/output": "line 1\nline 2"})

	out, err := newTestClient(srv).GetExecutionOutput(context.Background(), "42", url.Values{"lastlines": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2", out)
	assert.Equal(t, "2", fake.last().Query.Get("lastlines"))
	assert.Equal(t, "text/plain", fake.last().Header.Get("Accept"))
	assert.True(t, strings.HasSuffix(fake.last().Path, "/output"))
}
