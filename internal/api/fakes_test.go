package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jaam8/council_bot/internal/repository"
	"github.com/jaam8/council_bot/internal/service"
	"github.com/jaam8/council_bot/pkg/edge"
	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"
)

// fakeMessenger records what the bot would have sent to Mattermost.
type fakeMessenger struct {
	mu          sync.Mutex
	channelType model.ChannelType
	files       map[string]*model.FileInfo
	fileData    map[string][]byte
	ephemeral   []*model.PostEphemeral
	posts       []*model.Post
	uploads     []string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		channelType: model.ChannelTypeDirect,
		files:       make(map[string]*model.FileInfo),
		fileData:    make(map[string][]byte),
	}
}

func (f *fakeMessenger) attach(id, name string, data []byte) {
	f.files[id] = &model.FileInfo{Id: id, Name: name}
	f.fileData[id] = data
}

func (f *fakeMessenger) CreatePost(post *model.Post) (*model.Post, *model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post)
	return post, &model.Response{StatusCode: http.StatusCreated}, nil
}

func (f *fakeMessenger) CreatePostEphemeral(post *model.PostEphemeral) (*model.Post, *model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemeral = append(f.ephemeral, post)
	return post.Post, &model.Response{StatusCode: http.StatusCreated}, nil
}

func (f *fakeMessenger) GetChannel(channelID, _ string) (*model.Channel, *model.Response, error) {
	return &model.Channel{Id: channelID, Type: f.channelType}, &model.Response{StatusCode: http.StatusOK}, nil
}

func (f *fakeMessenger) GetFileInfo(fileID string) (*model.FileInfo, *model.Response, error) {
	info, ok := f.files[fileID]
	if !ok {
		return nil, &model.Response{StatusCode: http.StatusNotFound}, errors.New("not found")
	}
	return info, &model.Response{StatusCode: http.StatusOK}, nil
}

func (f *fakeMessenger) GetFile(fileID string) ([]byte, *model.Response, error) {
	data, ok := f.fileData[fileID]
	if !ok {
		return nil, &model.Response{StatusCode: http.StatusNotFound}, errors.New("not found")
	}
	return data, &model.Response{StatusCode: http.StatusOK}, nil
}

func (f *fakeMessenger) UploadFile(data []byte, channelID string, filename string) (*model.FileUploadResponse, *model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, filename)
	f.fileData["up-"+filename] = data
	return &model.FileUploadResponse{FileInfos: []*model.FileInfo{{Id: "up-" + filename, Name: filename, ChannelId: channelID}}},
		&model.Response{StatusCode: http.StatusCreated}, nil
}

func (f *fakeMessenger) lastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ephemeral) == 0 {
		return ""
	}
	return f.ephemeral[len(f.ephemeral)-1].Post.Message
}

// edgeStub answers by path and counts requests.
type edgeStub struct {
	mu     sync.Mutex
	hits   map[string]int
	answer func(path string, r *http.Request) (int, string)
}

func (e *edgeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path[1:]
	e.mu.Lock()
	e.hits[path]++
	e.mu.Unlock()
	status, body := e.answer(path, r)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (e *edgeStub) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, v := range e.hits {
		n += v
	}
	return n
}

type fixture struct {
	router *Router
	m      *fakeMessenger
	edge   *edgeStub
}

func newFixture(t *testing.T, answer func(path string, r *http.Request) (int, string)) *fixture {
	t.Helper()
	stub := &edgeStub{hits: make(map[string]int), answer: answer}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	l := zap.NewNop()
	c := edge.New(edge.Config{BaseURL: srv.URL, AdminAPIKey: "key", GetTimeout: time.Second, PostTimeout: time.Second, AdminTimeout: time.Second}, l)
	store := repository.NewMemorySessionStore(time.Hour, l)
	ballot := service.NewBallotService(c, service.NewRegionResolver(c, l), store, l)
	candidates := service.NewCandidateService(c, l, 4, time.Minute)
	admin := service.NewAdminService(c, service.NewAdminGate("pw", time.Hour), l)

	m := newFakeMessenger()
	router := NewRouter(NewBallotHandler(ballot, candidates, l, ""), NewAdminHandler(admin, m, l), m, l, 0, 1)
	return &fixture{router: router, m: m, edge: stub}
}
