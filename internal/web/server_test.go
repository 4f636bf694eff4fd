package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/config"
	"github.com/guidoenr/lanechart/internal/params"
)

// burstWAV is 1.5 s of silence with a 50 ms bass burst at 0.5 s, as 16-bit mono.
func burstWAV(t *testing.T) []byte {
	t.Helper()
	const rate = 44100
	freq := float64(rate) / 512
	data := make([]int, rate*3/2)
	start, n, fade := rate/2, rate/20, rate/200
	for i := 0; i < n; i++ {
		v := 0.9 * math.Sin(2*math.Pi*freq*float64(i)/rate)
		if i < fade {
			v *= 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(fade)))
		}
		if j := n - 1 - i; j < fade {
			v *= 0.5 * (1 - math.Cos(math.Pi*float64(j)/float64(fade)))
		}
		data[start+i] = int(v * 32767)
	}

	path := filepath.Join(t.TempDir(), "burst.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: 1},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(config.Config{
		MaxUploadMB:   1,
		MaxJobs:       1,
		DecodeTimeout: time.Second,
		Preset:        "standard",
		FFmpeg:        "lanechart-missing-ffmpeg",
	}, log.New(io.Discard, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	go s.broadcastLoop(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		s.Close()
	})
	return s, ts
}

func upload(t *testing.T, ts *httptest.Server, query, name string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/analyze"+query, bytes.NewReader(body))
	require.NoError(t, err)
	if name != "" {
		req.Header.Set("X-Filename", name)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

// waitJob polls until the job leaves the queued and analyzing states.
func waitJob(t *testing.T, ts *httptest.Server, id string) Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var job Job
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/jobs/"+id, &job))
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func TestAnalyzeUploadProducesChart(t *testing.T) {
	_, ts := newTestServer(t)

	resp := upload(t, ts, "?preset=standard", "burst.wav", burstWAV(t))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	assert.Equal(t, "queued", accepted["status"])
	id := accepted["id"]
	require.NotEmpty(t, id)

	job := waitJob(t, ts, id)
	require.Equal(t, StatusCompleted, job.Status, job.Message)
	assert.Equal(t, "burst.wav", job.Source)
	assert.Equal(t, 1, job.NoteCount)

	var c chart.Chart
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/charts/"+id, &c))
	assert.Equal(t, id, c.ID)
	assert.Equal(t, 44100, c.SampleRate)
	assert.InDelta(t, 1.5, c.Duration, 1e-6)
	require.Len(t, c.Notes, 1)
	assert.Equal(t, 0, c.Notes[0].Lane)
	assert.InDelta(t, 0.5, c.Notes[0].Timestamp, 512.0/44100)

	midi, err := http.Get(ts.URL + "/api/v1/charts/" + id + "/midi")
	require.NoError(t, err)
	defer midi.Body.Close()
	assert.Equal(t, http.StatusOK, midi.StatusCode)
	assert.Equal(t, "audio/midi", midi.Header.Get("Content-Type"))
	smf, err := io.ReadAll(midi.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(smf, []byte("MThd")))

	var jobs []Job
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/jobs", &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
}

func TestUndecodableUploadFails(t *testing.T) {
	_, ts := newTestServer(t)

	resp := upload(t, ts, "", "song.mp3", []byte("definitely not audio"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))

	job := waitJob(t, ts, accepted["id"])
	assert.Equal(t, StatusFailed, job.Status)
	assert.NotEmpty(t, job.Message)
	assert.Zero(t, job.NoteCount)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/charts/"+accepted["id"], nil))
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, upload(t, ts, "?preset=nope", "a.wav", []byte("x")).StatusCode)
	assert.Equal(t, http.StatusBadRequest, upload(t, ts, "", "a.wav", nil).StatusCode)
	big := make([]byte, 1<<20+1)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload(t, ts, "", "a.wav", big).StatusCode)
}

func TestUnknownJob(t *testing.T) {
	_, ts := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/charts/missing", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/charts/missing/midi", nil))
}

func TestPresetsAndParams(t *testing.T) {
	_, ts := newTestServer(t)

	var names []string
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/presets", &names))
	assert.Equal(t, params.PresetNames(), names)

	var p params.Parameters
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/params?preset=sustain", &p))
	want, err := params.Preset("sustain")
	require.NoError(t, err)
	assert.Equal(t, want, p)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/params?preset=nope", nil))
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/presets", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketStreamsJobUpdates(t *testing.T) {
	_, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	// the first message is the current totals, sent once the client is registered
	var evt event
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, "stats", evt.Type)
	require.NotNil(t, evt.Stats)
	assert.Zero(t, evt.Stats.Jobs)

	resp := upload(t, ts, "", "burst.wav", burstWAV(t))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var seen []Status
	var stats *Stats
	for stats == nil || stats.Completed == 0 {
		var evt event
		require.NoError(t, conn.ReadJSON(&evt))
		switch evt.Type {
		case "job":
			seen = append(seen, evt.Job.Status)
		case "stats":
			stats = evt.Stats
		}
	}
	assert.Contains(t, seen, StatusCompleted)
	assert.Equal(t, Stats{Jobs: 1, Completed: 1}, *stats)
}

func TestUploadsWaitForAFreeSlot(t *testing.T) {
	s, ts := newTestServer(t)

	// occupy the only slot
	s.slots <- struct{}{}

	resp := upload(t, ts, "", "burst.wav", burstWAV(t))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	id := accepted["id"]

	time.Sleep(100 * time.Millisecond)
	var job Job
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/jobs/"+id, &job))
	assert.Equal(t, StatusQueued, job.Status)

	<-s.slots
	job = waitJob(t, ts, id)
	assert.Equal(t, StatusCompleted, job.Status, job.Message)
}

func TestCloseFailsQueuedJobs(t *testing.T) {
	s, ts := newTestServer(t)
	s.slots <- struct{}{}

	resp := upload(t, ts, "", "burst.wav", burstWAV(t))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))

	s.Close()
	job, ok := s.snapshot(accepted["id"])
	require.True(t, ok)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "server shutting down", job.Message)
}
