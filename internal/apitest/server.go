package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

// BasePath is where the API is mounted.
const BasePath = "/api/v1"

// Messages the API uses for support tier rejections.
const (
	MsgLastTier       = "Can not remove a support tier if it is the only one for a petition"
	MsgTierHasSupport = "Can not delete a support tier if a supporter already exists for it"
	MsgEditSupported  = "Can not edit a support tier if a supporter already exists for it"
	MsgTooManyTiers   = "Can add a support tier if 3 already exist"
	MsgTierTitleTaken = "Support title not unique within petition"
)

type account struct {
	user     petition.User
	password string
}

type record struct {
	p     petition.Petition
	tiers []petition.SupportTier
}

type failure struct {
	status  int
	message string
}

// Server is a fake petitions API. The zero value is not usable; call New.
type Server struct {
	mu sync.Mutex

	accounts   map[int]*account
	tokens     map[string]int
	petitions  map[int]*record
	supporters map[int][]petition.Supporter
	images     map[string]api.Image
	categories []petition.Category

	nextUser, nextPetition, nextTier, nextSupport, nextToken int

	tick int

	calls       []string
	minTiers    map[int]int
	maxTiers    map[int]int
	failNext    map[string]failure
	imageMisses map[string]int

	tierBody bool
	epoch    time.Time
	engine   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithCreatedTierBody makes PUT /supportTiers answer with the created tier.
// By default it answers 201 with no body, like the reference API.
func WithCreatedTierBody() Option {
	return func(s *Server) {
		s.tierBody = true
	}
}

// WithCategories replaces the default categories.
func WithCategories(cats ...petition.Category) Option {
	return func(s *Server) {
		s.categories = append([]petition.Category(nil), cats...)
	}
}

// DefaultCategories are seeded unless WithCategories is given.
var DefaultCategories = []petition.Category{
	{ID: 1, Name: "Wildlife"},
	{ID: 2, Name: "Environmental Causes"},
	{ID: 3, Name: "Animal Rights"},
	{ID: 4, Name: "Health and Wellness"},
	{ID: 5, Name: "Education"},
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		accounts:     map[int]*account{},
		tokens:       map[string]int{},
		petitions:    map[int]*record{},
		supporters:   map[int][]petition.Supporter{},
		images:       map[string]api.Image{},
		categories:   append([]petition.Category(nil), DefaultCategories...),
		nextUser:     1,
		nextPetition: 1,
		nextTier:     1,
		nextSupport:  1,
		nextToken:    1,
		minTiers:     map[int]int{},
		maxTiers:     map[int]int{},
		failNext:     map[string]failure{},
		imageMisses:  map[string]int{},
		epoch:        time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.TestMode)
	s.engine = gin.New()
	s.routes(s.engine.Group(BasePath, s.recordCall, s.injectFailure))
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves the API on a loopback listener for the duration of the test
// and returns the API base URL.
func (s *Server) Start(tb testing.TB) string {
	tb.Helper()
	srv := httptest.NewServer(s.engine)
	tb.Cleanup(srv.Close)
	return srv.URL + BasePath
}

// Calls returns every request received, as "METHOD /path", in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls forgets the recorded requests.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// TierBounds returns the fewest and most support tiers the petition has
// had since it was created.
func (s *Server) TierBounds(petitionID int) (min, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minTiers[petitionID], s.maxTiers[petitionID]
}

// ResetTierBounds restarts bound tracking from the petition's current tiers.
func (s *Server) ResetTierBounds(petitionID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.petitions[petitionID]; ok {
		s.minTiers[petitionID] = len(rec.tiers)
		s.maxTiers[petitionID] = len(rec.tiers)
	}
}

// FailNext makes the next request matching method and path (relative to
// BasePath) fail with status and message.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[method+" "+path] = failure{status: status, message: message}
}

// DelayImage makes the next misses GETs of an image path answer 404 even
// when the image exists.
func (s *Server) DelayImage(path string, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageMisses[path] = misses
}

func (s *Server) recordCall(c *gin.Context) {
	path := strings.TrimPrefix(c.Request.URL.Path, BasePath)
	s.mu.Lock()
	s.calls = append(s.calls, c.Request.Method+" "+path)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) injectFailure(c *gin.Context) {
	key := c.Request.Method + " " + strings.TrimPrefix(c.Request.URL.Path, BasePath)
	s.mu.Lock()
	f, ok := s.failNext[key]
	if ok {
		delete(s.failNext, key)
	}
	s.mu.Unlock()
	if ok {
		c.String(f.status, f.message)
		c.Abort()
		return
	}
	c.Next()
}

// now returns a deterministic timestamp that advances one minute per call.
func (s *Server) now() time.Time {
	s.tick++
	return s.epoch.Add(time.Duration(s.tick) * time.Minute)
}

func (s *Server) observeTiers(petitionID int) {
	n := len(s.petitions[petitionID].tiers)
	if cur, ok := s.minTiers[petitionID]; !ok || n < cur {
		s.minTiers[petitionID] = n
	}
	if n > s.maxTiers[petitionID] {
		s.maxTiers[petitionID] = n
	}
}

// AddUser registers an account directly and returns its ID.
func (s *Server) AddUser(first, last, email, password string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUser(first, last, email, password)
}

func (s *Server) addUser(first, last, email, password string) int {
	id := s.nextUser
	s.nextUser++
	s.accounts[id] = &account{
		user:     petition.User{ID: id, FirstName: first, LastName: last, Email: email},
		password: password,
	}
	return id
}

// Login issues a token for userID without checking a password.
func (s *Server) Login(userID int) petition.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(userID)
}

func (s *Server) issueToken(userID int) petition.Session {
	tok := fmt.Sprintf("token-%d-%d", userID, s.nextToken)
	s.nextToken++
	s.tokens[tok] = userID
	return petition.Session{UserID: userID, Token: tok}
}

// AddPetition creates a petition directly. Tier IDs in tiers are ignored
// and assigned by the server.
func (s *Server) AddPetition(ownerID int, title, description string, categoryID int, tiers []petition.SupportTier) petition.Petition {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addPetition(ownerID, title, description, categoryID, tiers)
	return s.view(id)
}

func (s *Server) addPetition(ownerID int, title, description string, categoryID int, tiers []petition.SupportTier) int {
	id := s.nextPetition
	s.nextPetition++
	owner := s.accounts[ownerID]
	rec := &record{p: petition.Petition{
		PetitionSummary: petition.PetitionSummary{
			ID:           id,
			Title:        title,
			CategoryID:   categoryID,
			OwnerID:      ownerID,
			CreationDate: s.now(),
		},
		Description: description,
	}}
	if owner != nil {
		rec.p.OwnerFirstName = owner.user.FirstName
		rec.p.OwnerLastName = owner.user.LastName
	}
	for _, t := range tiers {
		t.ID = s.nextTier
		s.nextTier++
		rec.tiers = append(rec.tiers, t)
	}
	s.petitions[id] = rec
	s.minTiers[id] = len(rec.tiers)
	s.maxTiers[id] = len(rec.tiers)
	return id
}

// AddSupporter records a pledge directly.
func (s *Server) AddSupporter(petitionID, userID, tierID int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addSupporter(petitionID, userID, tierID, message)
}

func (s *Server) addSupporter(petitionID, userID, tierID int, message string) {
	sup := petition.Supporter{
		SupportID:     s.nextSupport,
		SupportTierID: tierID,
		Message:       message,
		SupporterID:   userID,
		Timestamp:     s.now(),
	}
	s.nextSupport++
	if acc := s.accounts[userID]; acc != nil {
		sup.SupporterFirstName = acc.user.FirstName
		sup.SupporterLastName = acc.user.LastName
	}
	s.supporters[petitionID] = append(s.supporters[petitionID], sup)
}

// SetImage stores an image at path ("/users/1/image", "/petitions/2/image").
func (s *Server) SetImage(path string, img api.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[path] = img
}

// Image returns the image stored at path.
func (s *Server) Image(path string) (api.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[path]
	return img, ok
}

// Petition returns the current state of a petition.
func (s *Server) Petition(id int) (petition.Petition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.petitions[id]; !ok {
		return petition.Petition{}, false
	}
	return s.view(id), true
}

// Tiers returns a petition's current support tiers.
func (s *Server) Tiers(petitionID int) []petition.SupportTier {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.petitions[petitionID]
	if !ok {
		return nil
	}
	return append([]petition.SupportTier(nil), rec.tiers...)
}

// view assembles the API representation of a petition. Caller holds mu.
func (s *Server) view(id int) petition.Petition {
	rec := s.petitions[id]
	p := rec.p
	p.SupportTiers = append([]petition.SupportTier{}, rec.tiers...)
	p.SupportingCost = 0
	for i, t := range rec.tiers {
		if i == 0 || t.Cost < p.SupportingCost {
			p.SupportingCost = t.Cost
		}
	}
	sups := s.supporters[id]
	p.NumberOfSupporters = len(sups)
	p.MoneyRaised = 0
	for _, sup := range sups {
		for _, t := range rec.tiers {
			if t.ID == sup.SupportTierID {
				p.MoneyRaised += t.Cost
			}
		}
	}
	return p
}
