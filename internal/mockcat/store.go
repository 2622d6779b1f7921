package mockcat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amoylab/catclient/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	errNotFound      = errors.New("not found")
	errUsernameTaken = errors.New("username already exists")
	errBadLogin      = errors.New("invalid credentials")
)

var collections = []models.Collection{
	models.CollectionEpisodic,
	models.CollectionDeclarative,
	models.CollectionProcedural,
}

func validCollection(name string) bool {
	for _, c := range collections {
		if string(c) == name {
			return true
		}
	}
	return false
}

type user struct {
	id          string
	username    string
	hash        []byte
	permissions models.Permission
	createdAt   time.Time
	updatedAt   time.Time
}

func (u *user) output() models.UserOutput {
	return models.UserOutput{
		ID:          u.id,
		Username:    u.username,
		Permissions: u.permissions,
		CreatedAt:   float64(u.createdAt.Unix()),
		UpdatedAt:   float64(u.updatedAt.Unix()),
	}
}

type conversation struct {
	models.ConversationsResponse
	userID  string
	history []models.ConversationHistoryItem
}

type factoryState struct {
	selected string
	values   map[string]map[string]any
}

// store keeps everything the fake server knows in memory.
type store struct {
	mu sync.Mutex

	users         map[string]*user
	points        map[models.Collection]map[string]models.MemoryPointOutput
	history       map[string][]models.ConversationHistoryItem // by user id
	conversations map[string]*conversation                    // by chat id
	settings      map[string]*models.SettingOutput
	plugins       map[string]*models.PluginItemOutput
	pluginValues  map[string]map[string]any
	factories     map[string]*factoryState
	agents        map[string]map[string]any
	deleteOps     int64
}

func newStore() *store {
	s := &store{}
	s.reset()
	return s
}

func (s *store) reset() {
	s.users = make(map[string]*user)
	s.points = make(map[models.Collection]map[string]models.MemoryPointOutput)
	for _, c := range collections {
		s.points[c] = make(map[string]models.MemoryPointOutput)
	}
	s.history = make(map[string][]models.ConversationHistoryItem)
	s.conversations = make(map[string]*conversation)
	s.settings = make(map[string]*models.SettingOutput)
	s.plugins = map[string]*models.PluginItemOutput{
		"core_plugin": {
			ID:          "core_plugin",
			Name:        "Core Plugin",
			Description: "The core features of the Cat",
			AuthorName:  "Cheshire Cat",
			Tags:        "core, default",
			Version:     "1.0.0",
			Active:      true,
			Hooks:       []models.HookOutput{{Name: "agent_prompt_prefix", Priority: 0}},
			Tools:       []models.ToolOutput{{Name: "get_the_time"}},
		},
	}
	s.pluginValues = map[string]map[string]any{"core_plugin": {}}
	s.factories = make(map[string]*factoryState)
	s.agents = map[string]map[string]any{"agent": {}}
}

func (s *store) addUser(username, password string, perms models.Permission) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.username == username {
			return nil, errUsernameTaken
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &user{
		id:          uuid.NewString(),
		username:    username,
		hash:        hash,
		permissions: perms,
		createdAt:   now,
		updatedAt:   now,
	}
	s.users[u.id] = u
	return u, nil
}

func (s *store) login(username, password string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
			return nil, errBadLogin
		}
		return u, nil
	}
	return nil, errBadLogin
}

func (s *store) getUser(id string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	return u, nil
}

func (s *store) listUsers() []models.UserOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UserOutput, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.output())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (s *store) updateUser(id string, in models.UserInput) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	if in.Username != "" {
		u.username = in.Username
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		u.hash = hash
	}
	if in.Permissions != nil {
		u.permissions = in.Permissions
	}
	u.updatedAt = time.Now()
	return u, nil
}

func (s *store) deleteUser(id string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	delete(s.users, id)
	return u, nil
}

// addChat appends a user message and the reply to the history of userID,
// and to the conversation chatID when given.
func (s *store) addChat(userID, chatID, text, reply string) {
	now := float64(time.Now().UnixNano()) / 1e9
	items := []models.ConversationHistoryItem{
		{Who: string(models.RoleUser), When: now, Content: models.HistoryContent{Text: text}},
		{Who: "assistant", When: now, Content: models.HistoryContent{Text: reply}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], items...)
	if chatID == "" {
		return
	}
	conv, ok := s.conversations[chatID]
	if !ok {
		conv = &conversation{
			ConversationsResponse: models.ConversationsResponse{
				ChatID:    chatID,
				Name:      text,
				CreatedAt: now,
			},
			userID: userID,
		}
		s.conversations[chatID] = conv
	}
	conv.history = append(conv.history, items...)
	conv.NumMessages = len(conv.history)
	conv.UpdatedAt = now
}

func (s *store) historyOf(userID string) []models.ConversationHistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationHistoryItem{}, s.history[userID]...)
}

func (s *store) appendHistory(userID string, item models.ConversationHistoryItem) []models.ConversationHistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], item)
	return append([]models.ConversationHistoryItem{}, s.history[userID]...)
}

func (s *store) clearHistory(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, userID)
}

func (s *store) conversationsOf(userID string) []models.ConversationsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ConversationsResponse{}
	for _, c := range s.conversations {
		if c.userID == userID {
			out = append(out, c.ConversationsResponse)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}

func (s *store) conversation(userID, chatID string) (*conversation, error) {
	c, ok := s.conversations[chatID]
	if !ok || c.userID != userID {
		return nil, errNotFound
	}
	return c, nil
}

func (s *store) getConversation(userID, chatID string) (models.ConversationsResponse, []models.ConversationHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.conversation(userID, chatID)
	if err != nil {
		return models.ConversationsResponse{}, nil, err
	}
	return c.ConversationsResponse, append([]models.ConversationHistoryItem{}, c.history...), nil
}

func (s *store) deleteConversation(userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conversation(userID, chatID); err != nil {
		return err
	}
	delete(s.conversations, chatID)
	return nil
}

func (s *store) changeConversation(userID, chatID string, attrs models.ConversationAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.conversation(userID, chatID)
	if err != nil {
		return err
	}
	if attrs.Name != "" {
		c.Name = attrs.Name
	}
	if attrs.Metadata != nil {
		c.Metadata = attrs.Metadata
	}
	return nil
}

func (s *store) collectionStats() []models.CollectionsItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CollectionsItem, 0, len(collections))
	for _, c := range collections {
		out = append(out, models.CollectionsItem{Name: string(c), VectorsCount: len(s.points[c])})
	}
	return out
}

func (s *store) wipe(cs ...models.Collection) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(cs))
	for _, c := range cs {
		s.points[c] = make(map[string]models.MemoryPointOutput)
		out[string(c)] = true
	}
	return out
}

func (s *store) upsertPoint(c models.Collection, id string, p models.MemoryPoint) models.MemoryPointOutput {
	if id == "" {
		id = uuid.NewString()
	}
	out := models.MemoryPointOutput{ID: id, Content: p.Content, Metadata: p.Metadata, Vector: embed(p.Content)}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	s.mu.Lock()
	s.points[c][id] = out
	s.mu.Unlock()
	return out
}

func (s *store) deletePoint(c models.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[c][id]; !ok {
		return errNotFound
	}
	delete(s.points[c], id)
	return nil
}

func (s *store) deleteByMetadata(c models.Collection, md map[string]any) models.DeleteOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points[c] {
		if matches(p.Metadata, md) {
			delete(s.points[c], id)
		}
	}
	s.deleteOps++
	return models.DeleteOperation{OperationID: s.deleteOps, Status: "completed"}
}

// listPoints returns points ordered by id. The offset is a position in that order.
func (s *store) listPoints(c models.Collection, md map[string]any, limit, offset int) ([]models.VectorRecord, any) {
	s.mu.Lock()
	all := make([]models.MemoryPointOutput, 0, len(s.points[c]))
	for _, p := range s.points[c] {
		if matches(p.Metadata, md) {
			all = append(all, p)
		}
	}
	s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	var next any
	if limit > 0 && len(all) > limit {
		all = all[:limit]
		next = offset + limit
	}
	out := make([]models.VectorRecord, 0, len(all))
	for _, p := range all {
		out = append(out, record(p, 0))
	}
	return out, next
}

// recall ranks points by how many words of text they share.
func (s *store) recall(text string, k int, md map[string]any) map[string][]models.VectorRecord {
	words := strings.Fields(strings.ToLower(text))
	out := make(map[string][]models.VectorRecord, len(collections))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range collections {
		recs := []models.VectorRecord{}
		for _, p := range s.points[c] {
			if !matches(p.Metadata, md) {
				continue
			}
			content := strings.ToLower(p.Content)
			hits := 0
			for _, w := range words {
				if strings.Contains(content, w) {
					hits++
				}
			}
			if hits == 0 {
				continue
			}
			recs = append(recs, record(p, float64(hits)/float64(len(words))))
		}
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].Score != recs[j].Score {
				return recs[i].Score > recs[j].Score
			}
			return recs[i].ID < recs[j].ID
		})
		if k > 0 && len(recs) > k {
			recs = recs[:k]
		}
		out[string(c)] = recs
	}
	return out
}

func record(p models.MemoryPointOutput, score float64) models.VectorRecord {
	return models.VectorRecord{
		ID:      p.ID,
		Payload: map[string]any{"page_content": p.Content, "metadata": p.Metadata},
		Vector:  p.Vector,
		Score:   score,
	}
}

// embed is a toy embedding: word count and mean word length.
func embed(text string) []float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []float64{0, 0}
	}
	total := 0
	for _, w := range words {
		total += len(w)
	}
	return []float64{float64(len(words)), float64(total) / float64(len(words))}
}

func matches(have, want map[string]any) bool {
	for k, v := range want {
		if fmt.Sprint(have[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func (s *store) settingsList() []models.SettingOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SettingOutput, 0, len(s.settings))
	for _, st := range s.settings {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *store) putSetting(id string, in models.SettingInput) models.SettingOutput {
	if id == "" {
		id = uuid.NewString()
	}
	st := &models.SettingOutput{
		Name:      in.Name,
		Value:     in.Value,
		Category:  in.Category,
		SettingID: id,
		UpdatedAt: float64(time.Now().Unix()),
	}
	s.mu.Lock()
	s.settings[id] = st
	s.mu.Unlock()
	return *st
}

func (s *store) setting(id string) (models.SettingOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[id]
	if !ok {
		return models.SettingOutput{}, errNotFound
	}
	return *st, nil
}

func (s *store) deleteSetting(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[id]; !ok {
		return errNotFound
	}
	delete(s.settings, id)
	return nil
}

func (s *store) pluginList(query string) []models.PluginItemOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.PluginItemOutput{}
	for _, p := range s.plugins {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) installPlugin(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins[id] = &models.PluginItemOutput{ID: id, Name: id, Version: "0.0.1", Hooks: []models.HookOutput{}, Tools: []models.ToolOutput{}}
	s.pluginValues[id] = map[string]any{}
}

func (s *store) togglePlugin(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plugins[id]
	if !ok {
		return false, errNotFound
	}
	p.Active = !p.Active
	return p.Active, nil
}

func (s *store) uninstallPlugin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[id]; !ok {
		return errNotFound
	}
	delete(s.plugins, id)
	delete(s.pluginValues, id)
	return nil
}

func (s *store) pluginSettings(id string) (models.PluginSettingsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.pluginValues[id]
	if !ok {
		return models.PluginSettingsOutput{}, errNotFound
	}
	return models.PluginSettingsOutput{Name: id, Value: v}, nil
}

func (s *store) allPluginSettings() []models.PluginSettingsOutput {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pluginValues))
	for id := range s.pluginValues {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	out := make([]models.PluginSettingsOutput, 0, len(ids))
	for _, id := range ids {
		if ps, err := s.pluginSettings(id); err == nil {
			out = append(out, ps)
		}
	}
	return out
}

func (s *store) setPluginSettings(id string, v map[string]any) (models.PluginSettingsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pluginValues[id]; !ok {
		return models.PluginSettingsOutput{}, errNotFound
	}
	s.pluginValues[id] = v
	return models.PluginSettingsOutput{Name: id, Value: v}, nil
}

func (s *store) factory(name string) *factoryState {
	f, ok := s.factories[name]
	if !ok {
		def := factoryDefaults[name]
		f = &factoryState{selected: def, values: map[string]map[string]any{def: {}}}
		s.factories[name] = f
	}
	return f
}

func (s *store) factorySettings(name string) models.FactoryObjectSettingsOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.factory(name)
	out := models.FactoryObjectSettingsOutput{SelectedConfiguration: f.selected}
	names := make([]string, 0, len(f.values))
	for n := range f.values {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		out.Settings = append(out.Settings, models.FactoryObjectSettingOutput{Name: n, Value: f.values[n], Scheme: map[string]any{}})
	}
	return out
}

func (s *store) factorySetting(name, config string) (models.FactoryObjectSettingOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.factory(name).values[config]
	if !ok {
		return models.FactoryObjectSettingOutput{}, errNotFound
	}
	return models.FactoryObjectSettingOutput{Name: config, Value: v, Scheme: map[string]any{}}, nil
}

func (s *store) putFactorySetting(name, config string, v map[string]any) models.FactoryObjectSettingOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.factory(name)
	f.values[config] = v
	f.selected = config
	return models.FactoryObjectSettingOutput{Name: config, Value: v, Scheme: map[string]any{"title": config}}
}

var factoryDefaults = map[string]string{
	"llm":              "LLMDefaultConfig",
	"embedder":         "EmbedderDumbConfig",
	"chunking":         "RecursiveTextChunkerSettings",
	"vector_database":  "QdrantConfig",
	"file_manager":     "LocalFileManagerConfig",
	"auth_handler":     "CoreOnlyAuthConfig",
	"agentic_workflow": "CoreAgenticWorkflowConfig",
}

func (s *store) agentList() []models.AgentOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AgentOutput, 0, len(s.agents))
	for id, md := range s.agents {
		out = append(out, models.AgentOutput{AgentID: id, Metadata: md})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

func (s *store) createAgent(id string, md map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; ok {
		return false
	}
	if md == nil {
		md = map[string]any{}
	}
	s.agents[id] = md
	return true
}

func (s *store) destroyAgent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return false
	}
	delete(s.agents, id)
	return true
}

func (s *store) cloneAgent(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.agents[from]
	if !ok {
		return false
	}
	if _, exists := s.agents[to]; exists {
		return false
	}
	cp := make(map[string]any, len(md))
	for k, v := range md {
		cp[k] = v
	}
	s.agents[to] = cp
	return true
}

func (s *store) updateAgent(id string, md map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return false
	}
	s.agents[id] = md
	return true
}

// factoryReset drops everything except the users.
func (s *store) factoryReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.users
	s.reset()
	s.users = users
}
