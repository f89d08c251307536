package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	tokens map[string]string
}

// harnessOption adjusts the router dependencies and service options before start.
type harnessOption func(t *testing.T, d *api.Deps, opts *[]quiz.ServiceOption)

func withEventLog(t *testing.T, d *api.Deps, opts *[]quiz.ServiceOption) {
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	events := syncx.NewEventRepo(conn, "")
	d.Events = events
	*opts = append(*opts, quiz.WithEvents(events))
}

func newHarness(t *testing.T, hopts ...harnessOption) *harness {
	t.Helper()
	store := quiz.NewInMemoryStore()
	ctx := context.Background()

	blobs, err := storage.NewFSStore(t.TempDir(), storage.WithSigner(storage.NewURLSigner("asset-secret", time.Hour)))
	require.NoError(t, err)
	_, err = blobs.Put("questions/q1/heart.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	for i, correct := range []int{1, 0, 2} {
		q := quiz.Question{
			ID:            []string{"q1", "q2", "q3"}[i],
			Text:          "Question",
			Options:       []quiz.Option{{Text: "A"}, {Text: "B"}, {Text: "C"}, {Text: "D"}},
			CorrectAnswer: correct,
			Explanation:   "because",
			Category:      quiz.CategoryOrganSystems,
			Subjects:      []quiz.SubjectGroup{{Name: "Cardiology", Topics: []string{"Anatomy"}}},
			Approved:      true,
		}
		if q.ID == "q1" {
			q.Media = []quiz.Media{{Type: quiz.MediaImage, Path: "questions/q1/heart.png", Filename: "heart.png"}}
		}
		require.NoError(t, store.PutQuestion(ctx, q))
	}

	a := auth.NewAuthService("test-secret", time.Hour)
	deps := api.Deps{Auth: a, Blobs: blobs}
	opts := []quiz.ServiceOption{quiz.WithMedia(blobs)}
	for _, o := range hopts {
		o(t, &deps, &opts)
	}
	deps.Service = quiz.NewService(store, opts...)
	srv := httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(srv.Close)

	tokens := map[string]string{}
	for sub, role := range map[string]string{"stu-1": "student", "stu-2": "student", "t-1": "teacher", "adm-1": "admin"} {
		tok, err := a.IssueJWT(sub, role)
		require.NoError(t, err)
		tokens[sub] = tok
	}
	return &harness{t: t, srv: srv, tokens: tokens}
}

func (h *harness) do(as, method, path, body string, out any) int {
	h.t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+h.tokens[as])
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(h.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

type errBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestSessionFlowOverHTTP(t *testing.T) {
	h := newHarness(t)

	var opened struct {
		Session   map[string]any   `json:"session"`
		Questions []map[string]any `json:"questions"`
	}
	require.Equal(t, http.StatusCreated,
		h.do("stu-1", "POST", "/tests", `{"question_ids":["q1","q2","q3"],"count":3}`, &opened))
	sid := opened.Session["id"].(string)
	require.Len(t, opened.Questions, 3)
	for _, q := range opened.Questions {
		_, leaked := q["correct_answer"]
		assert.False(t, leaked, "views must not carry the key")
	}

	for q, sel := range map[string]int{"q1": 1, "q2": 3, "q3": -1} {
		var res map[string]any
		body := `{"test_session_id":"` + sid + `","question_id":"` + q + `","selected_answer":` + jsonInt(sel) + `}`
		require.Equal(t, http.StatusOK, h.do("stu-1", "POST", "/student-questions/submit", body, &res))
		_, leaked := res["correct_answer"]
		assert.False(t, leaked)
	}

	var ts map[string]any
	require.Equal(t, http.StatusOK, h.do("stu-1", "PUT", "/tests/"+sid, `{"status":"succeeded"}`, &ts))
	assert.Equal(t, "succeeded", ts["status"])
	assert.Equal(t, 33.33, ts["score_percentage"])

	var eb errBody
	assert.Equal(t, http.StatusConflict, h.do("stu-1", "PUT", "/tests/"+sid, `{"status":"canceled"}`, &eb))
	assert.Equal(t, "invalid_state", eb.Error.Kind)

	var stats quiz.Stats
	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/student-questions/stats", "", &stats))
	assert.Equal(t, 2, stats.TotalAnswered)
	assert.Equal(t, 50.0, stats.Accuracy)

	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/student-questions/history/"+sid+"?filter=flagged", "", &page))
	assert.Equal(t, 1, page.Total)

	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/student-questions/history?flagged=false&limit=1", "", &page))
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)

	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/tests?status=succeeded&subject=Cardiology", "", &page))
	assert.Equal(t, 1, page.Total)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)
	var opened struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.Equal(t, http.StatusCreated, h.do("stu-1", "POST", "/tests", `{"question_ids":["q1"],"count":1}`, &opened))
	sid := opened.Session.ID

	cases := []struct {
		name, as, method, path, body string
		status                       int
		kind                         string
	}{
		{"empty list", "stu-1", "POST", "/tests", `{"question_ids":[]}`, 400, "invalid_input"},
		{"unknown question", "stu-1", "POST", "/tests", `{"question_ids":["nope"]}`, 400, "invalid_input"},
		{"missing answer", "stu-1", "POST", "/student-questions/submit", `{"test_session_id":"` + sid + `","question_id":"q1"}`, 400, "invalid_input"},
		{"answer below flag", "stu-1", "POST", "/student-questions/submit", `{"test_session_id":"` + sid + `","question_id":"q1","selected_answer":-2}`, 400, "invalid_input"},
		{"not a member", "stu-1", "POST", "/student-questions/submit", `{"test_session_id":"` + sid + `","question_id":"q2","selected_answer":0}`, 400, "invalid_input"},
		{"other student", "stu-2", "GET", "/tests/" + sid, "", 403, "forbidden"},
		{"missing session", "stu-1", "GET", "/tests/unknown", "", 404, "not_found"},
		{"bad close status", "stu-1", "PUT", "/tests/" + sid, `{"status":"proceeding"}`, 400, "invalid_input"},
		{"bad filter", "stu-1", "GET", "/student-questions/history/" + sid + "?filter=maybe", "", 400, "invalid_input"},
		{"bad category", "stu-1", "GET", "/student-questions/stats?category=Astrology", "", 400, "invalid_input"},
		{"student import", "stu-1", "POST", "/questions", `{"questions":[]}`, 403, "forbidden"},
	}
	for _, tc := range cases {
		var eb errBody
		assert.Equal(t, tc.status, h.do(tc.as, tc.method, tc.path, tc.body, &eb), tc.name)
		assert.Equal(t, tc.kind, eb.Error.Kind, tc.name)
	}

	assert.Equal(t, http.StatusUnauthorized, h.do("", "GET", "/tests", "", nil))
}

func TestTeacherImportsQuestions(t *testing.T) {
	h := newHarness(t)
	body := `{"questions":[{"id":"q9","question_text":"New","options":[{"text":"x"},{"text":"y"}],
		"correct_answer":1,"category":"basic sciences","approved":true}]}`
	var out map[string]int
	require.Equal(t, http.StatusCreated, h.do("t-1", "POST", "/questions", body, &out))
	assert.Equal(t, 1, out["imported"])

	var opened map[string]any
	assert.Equal(t, http.StatusCreated, h.do("stu-1", "POST", "/tests", `{"question_ids":["q9"]}`, &opened))

	var eb errBody
	bad := strings.Replace(body, `"correct_answer":1`, `"correct_answer":5`, 1)
	assert.Equal(t, http.StatusBadRequest, h.do("t-1", "POST", "/questions", bad, &eb))
}

func TestStudentBrowsesQuestions(t *testing.T) {
	h := newHarness(t)

	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/questions?category=organ%20systems&subject=Cardiology&limit=2", "", &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	for _, q := range page.Items {
		_, leaked := q["correct_answer"]
		assert.False(t, leaked)
	}

	var one map[string]any
	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/questions/q2", "", &one))
	assert.Equal(t, "q2", one["id"])
	_, leaked := one["correct_answer"]
	assert.False(t, leaked)
	_, leaked = one["explanation"]
	assert.False(t, leaked)

	var tags struct {
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/questions/tags", "", &tags))
	assert.Equal(t, 0, tags.Count)

	var eb errBody
	assert.Equal(t, http.StatusNotFound, h.do("stu-1", "GET", "/questions/nope", "", &eb))
	assert.Equal(t, "not_found", eb.Error.Kind)
	assert.Equal(t, http.StatusBadRequest, h.do("stu-1", "GET", "/questions?difficulty=brutal", "", &eb))
	assert.Equal(t, "invalid_input", eb.Error.Kind)
}

// fetch GETs a server-relative URL without credentials.
func (h *harness) fetch(rawURL string) (int, string) {
	h.t.Helper()
	res, err := http.Get(h.srv.URL + rawURL)
	require.NoError(h.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return res.StatusCode, string(b)
}

func TestSignedMediaLinks(t *testing.T) {
	h := newHarness(t)

	var view struct {
		Media []quiz.Media `json:"question_media"`
	}
	require.Equal(t, http.StatusOK, h.do("stu-1", "GET", "/questions/q1", "", &view))
	require.Len(t, view.Media, 1)
	link := view.Media[0].URL
	require.True(t, strings.HasPrefix(link, "/assets/questions/q1/heart.png?token="), link)

	status, body := h.fetch(link)
	assert.Equal(t, http.StatusOK, status, "no bearer header needed")
	assert.Equal(t, "png-bytes", body)

	status, _ = h.fetch("/assets/questions/q1/heart.png")
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = h.fetch(strings.Replace(link, "heart.png", "other.png", 1))
	assert.Equal(t, http.StatusForbidden, status)

	// uploads still need a teacher token, and return a working link
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "valve.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("valve"))
	require.NoError(t, mw.Close())

	upload := func(as string) (int, quiz.Media) {
		req, err := http.NewRequest("POST", h.srv.URL+"/assets", bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+h.tokens[as])
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		var m quiz.Media
		if res.StatusCode == http.StatusCreated {
			require.NoError(t, json.NewDecoder(res.Body).Decode(&m))
		}
		return res.StatusCode, m
	}
	status, _ = upload("stu-1")
	assert.Equal(t, http.StatusForbidden, status)
	status, m := upload("t-1")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, quiz.MediaImage, m.Type)
	status, body = h.fetch(m.URL)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "valve", body)
}

func TestEventFeed(t *testing.T) {
	h := newHarness(t, withEventLog)

	var opened struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.Equal(t, http.StatusCreated, h.do("stu-1", "POST", "/tests", `{"question_ids":["q1"],"count":1}`, &opened))
	body := `{"test_session_id":"` + opened.Session.ID + `","question_id":"q1","selected_answer":1}`
	require.Equal(t, http.StatusOK, h.do("stu-1", "POST", "/student-questions/submit", body, nil))

	var feed struct {
		Events []struct {
			Seq  int64          `json:"seq"`
			Type string         `json:"type"`
			Key  string         `json:"key"`
			Data map[string]any `json:"data"`
		} `json:"events"`
		Next int64 `json:"next"`
	}
	require.Equal(t, http.StatusOK, h.do("adm-1", "GET", "/events", "", &feed))
	require.Len(t, feed.Events, 2)
	assert.Equal(t, quiz.EventSessionOpened, feed.Events[0].Type)
	assert.Equal(t, quiz.EventAnswerSubmitted, feed.Events[1].Type)
	assert.Equal(t, opened.Session.ID, feed.Events[1].Key)
	assert.Equal(t, true, feed.Events[1].Data["is_correct"])
	assert.Equal(t, feed.Events[1].Seq, feed.Next)

	require.Equal(t, http.StatusOK, h.do("adm-1", "GET", "/events?since="+jsonInt(int(feed.Events[0].Seq)), "", &feed))
	require.Len(t, feed.Events, 1)
	assert.Equal(t, quiz.EventAnswerSubmitted, feed.Events[0].Type)

	var eb errBody
	assert.Equal(t, http.StatusForbidden, h.do("t-1", "GET", "/events", "", &eb))
	assert.Equal(t, http.StatusBadRequest, h.do("adm-1", "GET", "/events?since=-3", "", &eb))
}

func jsonInt(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}
