package apitest

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

func (s *Server) routes(r *gin.RouterGroup) {
	r.POST("/users/register", s.register)
	r.POST("/users/login", s.login)
	r.POST("/users/logout", s.logout)
	r.GET("/users/:id", s.getUser)
	r.PATCH("/users/:id", s.patchUser)
	r.GET("/users/:id/image", s.getImage)
	r.PUT("/users/:id/image", s.putUserImage)
	r.DELETE("/users/:id/image", s.deleteUserImage)

	r.GET("/petitions", s.listPetitions)
	r.POST("/petitions", s.createPetition)
	r.GET("/petitions/categories", s.listCategories)
	r.GET("/petitions/:id", s.getPetition)
	r.PATCH("/petitions/:id", s.patchPetition)
	r.DELETE("/petitions/:id", s.deletePetition)
	r.GET("/petitions/:id/image", s.getImage)
	r.PUT("/petitions/:id/image", s.putPetitionImage)
	r.GET("/petitions/:id/supporters", s.listSupporters)
	r.POST("/petitions/:id/supporters", s.addSupport)
	r.PUT("/petitions/:id/supportTiers", s.createTier)
	r.PATCH("/petitions/:id/supportTiers/:tierId", s.patchTier)
	r.DELETE("/petitions/:id/supportTiers/:tierId", s.deleteTier)
}

// authenticate resolves the X-Authorization token. Caller holds mu.
func (s *Server) authenticate(c *gin.Context) (int, bool) {
	id, ok := s.tokens[c.GetHeader(api.AuthHeader)]
	if !ok {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return id, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.String(http.StatusBadRequest, "Bad Request: invalid "+name)
		return 0, false
	}
	return n, true
}

// ownedPetition loads the petition in :id and checks the caller owns it.
// Caller holds mu.
func (s *Server) ownedPetition(c *gin.Context) (*record, bool) {
	userID, ok := s.authenticate(c)
	if !ok {
		return nil, false
	}
	id, ok := intParam(c, "id")
	if !ok {
		return nil, false
	}
	rec, ok := s.petitions[id]
	if !ok {
		c.String(http.StatusNotFound, "Not Found")
		return nil, false
	}
	if rec.p.OwnerID != userID {
		c.String(http.StatusForbidden, "Only the owner of a petition may change it")
		return nil, false
	}
	return rec, true
}

func (s *Server) register(c *gin.Context) {
	var req api.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}
	if req.FirstName == "" || req.LastName == "" || !strings.Contains(req.Email, "@") || len(req.Password) < 6 {
		c.String(http.StatusBadRequest, "Bad Request: data must have required properties")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, req.Email) {
			c.String(http.StatusForbidden, "Email already in use")
			return
		}
	}
	id := s.addUser(req.FirstName, req.LastName, req.Email, req.Password)
	c.JSON(http.StatusCreated, gin.H{"userId": id})
}

func (s *Server) login(c *gin.Context) {
	var req api.Credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.String(http.StatusBadRequest, "Bad Request: email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, req.Email) && acc.password == req.Password {
			c.JSON(http.StatusOK, s.issueToken(id))
			return
		}
	}
	c.String(http.StatusUnauthorized, "Incorrect email/password")
}

func (s *Server) logout(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authenticate(c); !ok {
		return
	}
	delete(s.tokens, c.GetHeader(api.AuthHeader))
	c.Status(http.StatusOK)
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	u := acc.user
	if s.tokens[c.GetHeader(api.AuthHeader)] != id {
		u.Email = ""
	}
	u.ID = 0
	c.JSON(http.StatusOK, u)
}

func (s *Server) patchUser(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req api.UserPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.authenticate(c)
	if !ok {
		return
	}
	acc, ok := s.accounts[id]
	if !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	if userID != id {
		c.String(http.StatusForbidden, "Can not edit another user's information")
		return
	}
	if req.Password != "" {
		if req.CurrentPassword != acc.password {
			c.String(http.StatusUnauthorized, "Incorrect currentPassword")
			return
		}
		if req.Password == req.CurrentPassword {
			c.String(http.StatusForbidden, "Identical current and new passwords")
			return
		}
	}
	if req.Email != "" && !strings.EqualFold(req.Email, acc.user.Email) {
		for other, a := range s.accounts {
			if other != id && strings.EqualFold(a.user.Email, req.Email) {
				c.String(http.StatusForbidden, "Email already in use")
				return
			}
		}
		acc.user.Email = req.Email
	}
	if req.FirstName != "" {
		acc.user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		acc.user.LastName = req.LastName
	}
	if req.Password != "" {
		acc.password = req.Password
	}
	c.Status(http.StatusOK)
}

func imageKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Request.URL.Path, BasePath)
}

func (s *Server) getImage(c *gin.Context) {
	key := imageKey(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageMisses[key] > 0 {
		s.imageMisses[key]--
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	img, ok := s.images[key]
	if !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func (s *Server) storeImage(c *gin.Context) {
	ct := c.ContentType()
	switch ct {
	case "image/png", "image/jpeg", "image/gif":
	default:
		c.String(http.StatusBadRequest, "Bad Request: photo must be image/jpeg, image/png, image/gif type, but it was: "+ct)
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		c.String(http.StatusBadRequest, "Bad Request: empty image")
		return
	}
	key := imageKey(c)
	_, existed := s.images[key]
	s.images[key] = api.Image{Data: data, ContentType: ct}
	if existed {
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) putUserImage(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.authenticate(c)
	if !ok {
		return
	}
	if _, ok := s.accounts[id]; !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	if userID != id {
		c.String(http.StatusForbidden, "Can not change another user's profile photo")
		return
	}
	s.storeImage(c)
}

func (s *Server) deleteUserImage(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.authenticate(c)
	if !ok {
		return
	}
	if userID != id {
		c.String(http.StatusForbidden, "Can not delete another user's profile photo")
		return
	}
	key := imageKey(c)
	if _, ok := s.images[key]; !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	delete(s.images, key)
	c.Status(http.StatusOK)
}

func (s *Server) listCategories(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.categories)
}

func (s *Server) listPetitions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(c.Query("q"))
	cats := map[int]bool{}
	for _, raw := range c.QueryArray("categoryIds") {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.String(http.StatusBadRequest, "Bad Request: categoryIds")
			return
		}
		cats[n] = true
	}
	maxCost, hasMaxCost := queryInt(c, "supportingCost")
	ownerID, hasOwner := queryInt(c, "ownerId")
	supporterID, hasSupporter := queryInt(c, "supporterId")

	var rows []petition.PetitionSummary
	for id, rec := range s.petitions {
		v := s.view(id)
		switch {
		case q != "" && !strings.Contains(strings.ToLower(rec.p.Title), q) && !strings.Contains(strings.ToLower(rec.p.Description), q):
			continue
		case len(cats) > 0 && !cats[rec.p.CategoryID]:
			continue
		case hasMaxCost && v.SupportingCost > maxCost:
			continue
		case hasOwner && rec.p.OwnerID != ownerID:
			continue
		case hasSupporter && !s.supports(id, supporterID):
			continue
		}
		rows = append(rows, v.PetitionSummary)
	}
	sortPetitions(rows, api.SortBy(c.DefaultQuery("sortBy", string(api.SortCreatedAsc))))

	total := len(rows)
	start, _ := queryInt(c, "startIndex")
	start = min(max(start, 0), len(rows))
	rows = rows[start:]
	if count, ok := queryInt(c, "count"); ok && count < len(rows) {
		rows = rows[:count]
	}
	if rows == nil {
		rows = []petition.PetitionSummary{}
	}
	c.JSON(http.StatusOK, api.PetitionPage{Petitions: rows, Count: total})
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *Server) supports(petitionID, userID int) bool {
	for _, sup := range s.supporters[petitionID] {
		if sup.SupporterID == userID {
			return true
		}
	}
	return false
}

func sortPetitions(rows []petition.PetitionSummary, by api.SortBy) {
	less := func(a, b petition.PetitionSummary) bool { return a.CreationDate.Before(b.CreationDate) }
	switch by {
	case api.SortAlphabeticalAsc:
		less = func(a, b petition.PetitionSummary) bool { return a.Title < b.Title }
	case api.SortAlphabeticalDesc:
		less = func(a, b petition.PetitionSummary) bool { return a.Title > b.Title }
	case api.SortCostAsc:
		less = func(a, b petition.PetitionSummary) bool { return a.SupportingCost < b.SupportingCost }
	case api.SortCostDesc:
		less = func(a, b petition.PetitionSummary) bool { return a.SupportingCost > b.SupportingCost }
	case api.SortCreatedDesc:
		less = func(a, b petition.PetitionSummary) bool { return a.CreationDate.After(b.CreationDate) }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if less(rows[i], rows[j]) {
			return true
		}
		if less(rows[j], rows[i]) {
			return false
		}
		return rows[i].ID < rows[j].ID
	})
}

func (s *Server) getPetition(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.petitions[id]; !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	c.JSON(http.StatusOK, s.view(id))
}

func (s *Server) categoryExists(id int) bool {
	for _, cat := range s.categories {
		if cat.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) titleTaken(title string, except int) bool {
	for id, rec := range s.petitions {
		if id != except && rec.p.Title == title {
			return true
		}
	}
	return false
}

func (s *Server) createPetition(c *gin.Context) {
	var req api.NewPetition
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.authenticate(c)
	if !ok {
		return
	}
	if msg := checkPetitionFields(req.Title, req.Description); msg != "" {
		c.String(http.StatusBadRequest, "Bad Request: "+msg)
		return
	}
	if !s.categoryExists(req.CategoryID) {
		c.String(http.StatusBadRequest, "Bad Request: categoryId does not match any existing category")
		return
	}
	if n := len(req.SupportTiers); n < 1 || n > petition.MaxSupportTiers {
		c.String(http.StatusBadRequest, "Bad Request: data/supportTiers must have 1 to 3 items")
		return
	}
	titles := map[string]bool{}
	for i, t := range req.SupportTiers {
		if msg := checkTierFields(i, t); msg != "" {
			c.String(http.StatusBadRequest, "Bad Request: "+msg)
			return
		}
		if titles[t.Title] {
			c.String(http.StatusBadRequest, "Bad Request: support tier titles must be unique")
			return
		}
		titles[t.Title] = true
	}
	if s.titleTaken(req.Title, 0) {
		c.String(http.StatusForbidden, "Petition title already exists")
		return
	}
	id := s.addPetition(userID, req.Title, req.Description, req.CategoryID, req.SupportTiers)
	c.JSON(http.StatusCreated, gin.H{"petitionId": id})
}

func checkPetitionFields(title, description string) string {
	switch {
	case title == "":
		return "data/title must NOT have fewer than 1 characters"
	case len([]rune(title)) > 128:
		return "data/title must NOT have more than 128 characters"
	case description == "":
		return "data/description must NOT have fewer than 1 characters"
	case len([]rune(description)) > 1024:
		return "data/description must NOT have more than 1024 characters"
	}
	return ""
}

func checkTierFields(i int, t petition.SupportTier) string {
	switch {
	case t.Title == "":
		return "data/supportTiers/" + strconv.Itoa(i) + "/title must NOT have fewer than 1 characters"
	case len([]rune(t.Title)) > 128:
		return "data/supportTiers/" + strconv.Itoa(i) + "/title must NOT have more than 128 characters"
	case t.Description == "":
		return "data/supportTiers/" + strconv.Itoa(i) + "/description must NOT have fewer than 1 characters"
	case len([]rune(t.Description)) > 1024:
		return "data/supportTiers/" + strconv.Itoa(i) + "/description must NOT have more than 1024 characters"
	case t.Cost < 0:
		return "data/supportTiers/" + strconv.Itoa(i) + "/cost must be >= 0"
	}
	return ""
}

func (s *Server) patchPetition(c *gin.Context) {
	var req api.PetitionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedPetition(c)
	if !ok {
		return
	}
	title, description := rec.p.Title, rec.p.Description
	if req.Title != nil {
		title = *req.Title
	}
	if req.Description != nil {
		description = *req.Description
	}
	if msg := checkPetitionFields(title, description); msg != "" {
		c.String(http.StatusBadRequest, "Bad Request: "+msg)
		return
	}
	if req.CategoryID != nil && !s.categoryExists(*req.CategoryID) {
		c.String(http.StatusBadRequest, "Bad Request: categoryId does not match any existing category")
		return
	}
	if req.Title != nil && s.titleTaken(title, rec.p.ID) {
		c.String(http.StatusForbidden, "Petition title already exists")
		return
	}
	rec.p.Title, rec.p.Description = title, description
	if req.CategoryID != nil {
		rec.p.CategoryID = *req.CategoryID
	}
	c.Status(http.StatusOK)
}

func (s *Server) deletePetition(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedPetition(c)
	if !ok {
		return
	}
	if len(s.supporters[rec.p.ID]) > 0 {
		c.String(http.StatusForbidden, "Can not delete a petition with one or more supporters")
		return
	}
	delete(s.petitions, rec.p.ID)
	delete(s.images, "/petitions/"+strconv.Itoa(rec.p.ID)+"/image")
	c.Status(http.StatusOK)
}

func (s *Server) putPetitionImage(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedPetition(c); !ok {
		return
	}
	s.storeImage(c)
}

func (s *Server) listSupporters(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.petitions[id]; !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	sups := append([]petition.Supporter{}, s.supporters[id]...)
	// Newest first.
	sort.SliceStable(sups, func(i, j int) bool { return sups[i].Timestamp.After(sups[j].Timestamp) })
	c.JSON(http.StatusOK, sups)
}

func (s *Server) addSupport(c *gin.Context) {
	var req api.NewSupport
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.authenticate(c)
	if !ok {
		return
	}
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	rec, ok := s.petitions[id]
	if !ok {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	if rec.p.OwnerID == userID {
		c.String(http.StatusForbidden, "Cannot support your own petition")
		return
	}
	found := false
	for _, t := range rec.tiers {
		found = found || t.ID == req.SupportTierID
	}
	if !found {
		c.String(http.StatusNotFound, "Support tier does not exist")
		return
	}
	for _, sup := range s.supporters[id] {
		if sup.SupporterID == userID && sup.SupportTierID == req.SupportTierID {
			c.String(http.StatusForbidden, "Already supported at this tier")
			return
		}
	}
	s.addSupporter(id, userID, req.SupportTierID, req.Message)
	c.Status(http.StatusCreated)
}

func (s *Server) tierTitleTaken(rec *record, title string, except int) bool {
	for _, t := range rec.tiers {
		if t.ID != except && t.Title == title {
			return true
		}
	}
	return false
}

func (s *Server) tierHasSupport(petitionID, tierID int) bool {
	for _, sup := range s.supporters[petitionID] {
		if sup.SupportTierID == tierID {
			return true
		}
	}
	return false
}

// tierIndex finds :tierId on rec, writing 404 when absent.
func tierIndex(c *gin.Context, rec *record) (int, bool) {
	tierID, ok := intParam(c, "tierId")
	if !ok {
		return 0, false
	}
	for i, t := range rec.tiers {
		if t.ID == tierID {
			return i, true
		}
	}
	c.String(http.StatusNotFound, "Not Found")
	return 0, false
}

func (s *Server) createTier(c *gin.Context) {
	var req petition.SupportTier
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedPetition(c)
	if !ok {
		return
	}
	if msg := checkTierFields(0, req); msg != "" {
		c.String(http.StatusBadRequest, "Bad Request: "+strings.Replace(msg, "supportTiers/0/", "", 1))
		return
	}
	if len(rec.tiers) >= petition.MaxSupportTiers {
		c.String(http.StatusForbidden, MsgTooManyTiers)
		return
	}
	if s.tierTitleTaken(rec, req.Title, 0) {
		c.String(http.StatusForbidden, MsgTierTitleTaken)
		return
	}
	req.ID = s.nextTier
	s.nextTier++
	rec.tiers = append(rec.tiers, req)
	s.observeTiers(rec.p.ID)
	if s.tierBody {
		c.JSON(http.StatusCreated, req)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) patchTier(c *gin.Context) {
	var req api.TierPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedPetition(c)
	if !ok {
		return
	}
	i, ok := tierIndex(c, rec)
	if !ok {
		return
	}
	t := rec.tiers[i]
	if s.tierHasSupport(rec.p.ID, t.ID) {
		c.String(http.StatusForbidden, MsgEditSupported)
		return
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Cost != nil {
		t.Cost = *req.Cost
	}
	if msg := checkTierFields(0, t); msg != "" {
		c.String(http.StatusBadRequest, "Bad Request: "+strings.Replace(msg, "supportTiers/0/", "", 1))
		return
	}
	if req.Title != nil && s.tierTitleTaken(rec, t.Title, t.ID) {
		c.String(http.StatusForbidden, MsgTierTitleTaken)
		return
	}
	rec.tiers[i] = t
	c.Status(http.StatusOK)
}

func (s *Server) deleteTier(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ownedPetition(c)
	if !ok {
		return
	}
	i, ok := tierIndex(c, rec)
	if !ok {
		return
	}
	if s.tierHasSupport(rec.p.ID, rec.tiers[i].ID) {
		c.String(http.StatusForbidden, MsgTierHasSupport)
		return
	}
	if len(rec.tiers) == 1 {
		c.String(http.StatusForbidden, MsgLastTier)
		return
	}
	rec.tiers = append(rec.tiers[:i], rec.tiers[i+1:]...)
	s.observeTiers(rec.p.ID)
	c.Status(http.StatusOK)
}
