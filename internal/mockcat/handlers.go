package mockcat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/pkg/models"
	"github.com/amoylab/catclient/pkg/version"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errNotFound):
		detail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errUsernameTaken):
		detail(c, http.StatusForbidden, err.Error())
	default:
		detail(c, http.StatusBadRequest, err.Error())
	}
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handleHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "We're all mad here, dear!", "version": version.Get()})
}

func (s *Server) handleToken(c *gin.Context) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bind(c, &in) {
		return
	}
	u, err := s.store.login(in.Username, in.Password)
	if err != nil {
		detail(c, http.StatusForbidden, err.Error())
		return
	}
	token, err := s.tokens.generate(u.id, u.username)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, models.TokenOutput{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handlePermissions(c *gin.Context) {
	c.JSON(http.StatusOK, AdminPermissions)
}

func (s *Server) handleMe(c *gin.Context) {
	who := callerOf(c)
	u := models.User{ID: who.userID, Username: who.username, Permissions: AdminPermissions}
	agents := s.store.agentList()
	out := models.MeOutput{Success: true, AutoSelected: len(agents) == 1}
	for _, a := range agents {
		out.Agents = append(out.Agents, models.AgentMatch{AgentID: a.AgentID, AgentName: a.AgentID, User: u})
	}
	c.JSON(http.StatusOK, out)
}

func reply(text string) string {
	return "You said: " + text
}

func (s *Server) handleMessage(c *gin.Context) {
	var in struct {
		Text string `json:"text"`
	}
	if !bind(c, &in) {
		return
	}
	who := callerOf(c)
	chatID := c.GetHeader(cnst.HeaderChatID)
	if chatID == "" {
		chatID = uuid.NewString()
	}
	answer := reply(in.Text)
	s.store.addChat(who.userID, chatID, in.Text, answer)
	c.JSON(http.StatusOK, models.ChatOutput{
		AgentID: c.GetHeader(cnst.HeaderAgentID),
		UserID:  who.userID,
		ChatID:  chatID,
		Message: models.MessageOutput{Text: answer, Type: models.SocketTypeChat},
	})
}

func collectionParam(c *gin.Context) (models.Collection, bool) {
	name := c.Param("collection")
	if !validCollection(name) {
		detail(c, http.StatusBadRequest, fmt.Sprintf("collection %q does not exist", name))
		return "", false
	}
	return models.Collection(name), true
}

// metadataQuery decodes the JSON metadata query filter.
func metadataQuery(c *gin.Context) (map[string]any, bool) {
	raw := c.Query("metadata")
	if raw == "" {
		return nil, true
	}
	var md map[string]any
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		detail(c, http.StatusBadRequest, "metadata must be a JSON object")
		return nil, false
	}
	return md, true
}

func intQuery(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func (s *Server) handleCollections(c *gin.Context) {
	c.JSON(http.StatusOK, models.CollectionsOutput{Collections: s.store.collectionStats()})
}

func (s *Server) handleWipeCollections(c *gin.Context) {
	c.JSON(http.StatusOK, models.CollectionPointsDestroyOutput{Deleted: s.store.wipe(collections...)})
}

func (s *Server) handleWipeCollection(c *gin.Context) {
	coll, ok := collectionParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.CollectionPointsDestroyOutput{Deleted: s.store.wipe(coll)})
}

func (s *Server) handleListPoints(c *gin.Context) {
	coll, ok := collectionParam(c)
	if !ok {
		return
	}
	md, ok := metadataQuery(c)
	if !ok {
		return
	}
	points, next := s.store.listPoints(coll, md, intQuery(c, "limit"), intQuery(c, "offset"))
	c.JSON(http.StatusOK, models.MemoryPointsOutput{Points: points, NextOffset: next})
}

func (s *Server) handleCreatePoint(c *gin.Context) {
	coll, ok := collectionParam(c)
	if !ok {
		return
	}
	var in models.MemoryPoint
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, s.store.upsertPoint(coll, "", in))
}

func (s *Server) handleUpdatePoint(c *gin.Context) {
	coll, ok := collectionParam(c)
	if !ok {
		return
	}
	var in models.MemoryPoint
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, s.store.upsertPoint(coll, c.Param("point_id"), in))
}

func (s *Server) handleDeletePoint(c *gin.Context) {
	coll, ok := collectionParam(c)
	if !ok {
		return
	}
	id := c.Param("point_id")
	if err := s.store.deletePoint(coll, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MemoryPointDeleteOutput{Deleted: id})
}

func (s *Server) handleDeletePointsByMetadata(c *gin.Context) {
	coll, ok := collectionParam(c)
	if !ok {
		return
	}
	md := map[string]any{}
	if c.Request.ContentLength != 0 {
		if err := json.NewDecoder(c.Request.Body).Decode(&md); err != nil && !errors.Is(err, io.EOF) {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, models.MemoryPointsDeleteByMetadataOutput{Deleted: s.store.deleteByMetadata(coll, md)})
}

func (s *Server) handleGetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, models.ConversationHistoryOutput{History: s.store.historyOf(callerOf(c).userID)})
}

func (s *Server) handlePostHistory(c *gin.Context) {
	var in models.ConversationHistoryInput
	if !bind(c, &in) {
		return
	}
	item := models.ConversationHistoryItem{
		Who:     string(in.Who),
		Content: models.HistoryContent{Text: in.Text, Why: in.Why},
	}
	if in.Image != "" {
		item.Content.Images = []string{in.Image}
	}
	c.JSON(http.StatusOK, models.ConversationHistoryOutput{History: s.store.appendHistory(callerOf(c).userID, item)})
}

func (s *Server) handleDeleteHistory(c *gin.Context) {
	s.store.clearHistory(callerOf(c).userID)
	c.JSON(http.StatusOK, models.ConversationHistoryDeleteOutput{Deleted: true})
}

func (s *Server) handleRecall(c *gin.Context) {
	text := c.Query("text")
	md, ok := metadataQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.MemoryRecallOutput{
		Query: models.MemoryRecallQuery{Text: text, Vector: embed(text)},
		Vectors: models.MemoryRecallVectors{
			Embedder:    factoryDefaults["embedder"],
			Collections: s.store.recall(text, intQuery(c, "k"), md),
		},
	})
}

func (s *Server) handleConversations(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.conversationsOf(callerOf(c).userID))
}

func (s *Server) handleConversation(c *gin.Context) {
	conv, _, err := s.store.getConversation(callerOf(c).userID, c.Param("chat_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleConversationHistory(c *gin.Context) {
	_, history, err := s.store.getConversation(callerOf(c).userID, c.Param("chat_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ConversationHistoryOutput{History: history})
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	if err := s.store.deleteConversation(callerOf(c).userID, c.Param("chat_id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ConversationDeleteOutput{Deleted: true})
}

func (s *Server) handlePutConversation(c *gin.Context) {
	var in models.ConversationAttributes
	if !bind(c, &in) {
		return
	}
	if in.Empty() {
		detail(c, http.StatusBadRequest, cnst.ErrNameOrMetadataRequired.Error())
		return
	}
	if err := s.store.changeConversation(callerOf(c).userID, c.Param("chat_id"), in); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ConversationAttributesChangeOutput{Changed: true})
}

// registryPlugin is what the fake registry offers. Its tags come as an
// array, like the public registry does.
var registryPlugin = map[string]any{
	"id":          "weather",
	"name":        "Weather",
	"description": "Tells the weather",
	"tags":        []string{"weather", "tools"},
	"version":     "0.1.0",
	"url":         "https://example.com/weather.zip",
}

func (s *Server) handlePlugins(c *gin.Context) {
	query := c.Query("query")
	registry := []any{}
	if query == "" || strings.Contains("weather", strings.ToLower(query)) {
		registry = append(registry, registryPlugin)
	}
	c.JSON(http.StatusOK, gin.H{
		"filters":   gin.H{"query": query},
		"installed": s.store.pluginList(query),
		"registry":  registry,
	})
}

func (s *Server) handleTogglePlugin(c *gin.Context) {
	id := c.Param("plugin_id")
	active, err := s.store.togglePlugin(id)
	if err != nil {
		fail(c, err)
		return
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	c.JSON(http.StatusOK, models.PluginToggleOutput{Info: fmt.Sprintf("Plugin %s %s", id, state)})
}

func (s *Server) handlePluginsSettings(c *gin.Context) {
	c.JSON(http.StatusOK, models.PluginsSettingsOutput{Settings: s.store.allPluginSettings()})
}

func (s *Server) handlePluginSettings(c *gin.Context) {
	out, err := s.store.pluginSettings(c.Param("plugin_id"))
	if err != nil {
		fail(c, err)
		return
	}
	// the real server sends an empty schema for plugins without settings
	c.JSON(http.StatusOK, gin.H{"name": out.Name, "value": out.Value, "scheme": gin.H{}})
}

func (s *Server) handlePutPluginSettings(c *gin.Context) {
	var in map[string]any
	if !bind(c, &in) {
		return
	}
	out, err := s.store.setPluginSettings(c.Param("plugin_id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleInstallUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	id := strings.TrimSuffix(fh.Filename, ".zip")
	s.store.installPlugin(id)
	c.JSON(http.StatusOK, models.PluginInstallOutput{
		PluginToggleOutput: models.PluginToggleOutput{Info: "Plugin is being installed asynchronously"},
		Filename:           fh.Filename,
		ContentType:        fh.Header.Get("Content-Type"),
	})
}

func (s *Server) handleInstallRegistry(c *gin.Context) {
	var in struct {
		URL string `json:"url"`
	}
	if !bind(c, &in) {
		return
	}
	s.store.installPlugin(registryPlugin["id"].(string))
	c.JSON(http.StatusOK, models.PluginInstallFromRegistryOutput{
		PluginToggleOutput: models.PluginToggleOutput{Info: "Plugin is being installed asynchronously"},
		URL:                in.URL,
	})
}

func (s *Server) handlePluginDetails(c *gin.Context) {
	id := c.Param("plugin_id")
	for _, p := range s.store.pluginList("") {
		if p.ID == id {
			c.JSON(http.StatusOK, gin.H{"data": p})
			return
		}
	}
	fail(c, errNotFound)
}

func (s *Server) handleUninstallPlugin(c *gin.Context) {
	id := c.Param("plugin_id")
	if err := s.store.uninstallPlugin(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PluginDeleteOutput{Deleted: id})
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var in models.UserInput
	if !bind(c, &in) {
		return
	}
	if in.Username == "" || in.Password == "" {
		detail(c, http.StatusBadRequest, "username and password are required")
		return
	}
	perms := in.Permissions
	if perms == nil {
		perms = models.Permission{"CHAT": {"WRITE"}}
	}
	u, err := s.store.addUser(in.Username, in.Password, perms)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u.output())
}

func (s *Server) handleListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listUsers())
}

func (s *Server) handleGetUser(c *gin.Context) {
	u, err := s.store.getUser(c.Param("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u.output())
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var in models.UserInput
	if !bind(c, &in) {
		return
	}
	u, err := s.store.updateUser(c.Param("user_id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u.output())
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	u, err := s.store.deleteUser(c.Param("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u.output())
}

func (s *Server) handleSettings(c *gin.Context) {
	c.JSON(http.StatusOK, models.SettingsOutputCollection{Settings: s.store.settingsList()})
}

func (s *Server) handleCreateSetting(c *gin.Context) {
	var in models.SettingInput
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, models.SettingOutputItem{Setting: s.store.putSetting("", in)})
}

func (s *Server) handleSetting(c *gin.Context) {
	st, err := s.store.setting(c.Param("setting_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SettingOutputItem{Setting: st})
}

func (s *Server) handleUpdateSetting(c *gin.Context) {
	id := c.Param("setting_id")
	if _, err := s.store.setting(id); err != nil {
		fail(c, err)
		return
	}
	var in models.SettingInput
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, models.SettingOutputItem{Setting: s.store.putSetting(id, in)})
}

func (s *Server) handleDeleteSetting(c *gin.Context) {
	if err := s.store.deleteSetting(c.Param("setting_id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SettingDeleteOutput{Deleted: true})
}

func (s *Server) handleFactorySettings(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.store.factorySettings(name))
	}
}

func (s *Server) handleFactorySetting(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.store.factorySetting(name, c.Param("name"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) handlePutFactorySetting(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in map[string]any
		if !bind(c, &in) {
			return
		}
		c.JSON(http.StatusOK, s.store.putFactorySetting(name, c.Param("name"), in))
	}
}

// uploadInfo echoes what the rabbit hole received.
func uploadInfo(c *gin.Context, files ...string) gin.H {
	out := gin.H{"info": "File is being ingested asynchronously"}
	if len(files) == 1 {
		out["filename"] = files[0]
	} else {
		out["filenames"] = files
	}
	for _, key := range []string{"chunk_size", "chunk_overlap"} {
		if v := c.PostForm(key); v != "" {
			n, _ := strconv.Atoi(v)
			out[key] = n
		}
	}
	if v := c.PostForm("metadata"); v != "" {
		var md map[string]any
		if err := json.Unmarshal([]byte(v), &md); err == nil {
			out["metadata"] = md
		}
	}
	return out
}

func (s *Server) handleUploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	info := uploadInfo(c, fh.Filename)
	info["content_type"] = fh.Header.Get("Content-Type")
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleUploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	names := []string{}
	for _, fh := range form.File["files"] {
		names = append(names, fh.Filename)
	}
	if len(names) == 0 {
		detail(c, http.StatusBadRequest, "no files")
		return
	}
	c.JSON(http.StatusOK, uploadInfo(c, names...))
}

func (s *Server) handleUploadURL(c *gin.Context) {
	var in models.WebInput
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": in.URL, "info": "URL is being ingested asynchronously", "chunk_size": in.ChunkSize})
}

func (s *Server) handleUploadMemory(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": fh.Filename, "content_type": fh.Header.Get("Content-Type"), "info": "Memory is being ingested asynchronously"})
}

func (s *Server) handleMimeTypes(c *gin.Context) {
	c.JSON(http.StatusOK, models.AllowedMimeTypesOutput{Allowed: []string{"text/plain", "text/markdown", "application/pdf", "text/html"}})
}

func (s *Server) handleFactoryReset(c *gin.Context) {
	s.store.factoryReset()
	c.JSON(http.StatusOK, models.ResetOutput{DeletedSettings: true, DeletedMemories: true, DeletedPluginFolders: true})
}

func (s *Server) handleAgents(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.agentList())
}

func (s *Server) handleCreateAgent(c *gin.Context) {
	var in models.AgentOutput
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, models.CreatedOutput{Created: s.store.createAgent(in.AgentID, in.Metadata)})
}

func (s *Server) handleResetAgent(c *gin.Context) {
	agent := c.GetHeader(cnst.HeaderAgentID)
	ok := s.store.destroyAgent(agent)
	if ok {
		s.store.createAgent(agent, nil)
	}
	c.JSON(http.StatusOK, models.ResetOutput{DeletedSettings: ok, DeletedMemories: ok, DeletedPluginFolders: false})
}

func (s *Server) handleDestroyAgent(c *gin.Context) {
	ok := s.store.destroyAgent(c.GetHeader(cnst.HeaderAgentID))
	c.JSON(http.StatusOK, models.ResetOutput{DeletedSettings: ok, DeletedMemories: ok, DeletedPluginFolders: ok})
}

func (s *Server) handleCloneAgent(c *gin.Context) {
	var in struct {
		AgentID string `json:"agent_id"`
	}
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, models.ClonedOutput{Cloned: s.store.cloneAgent(c.GetHeader(cnst.HeaderAgentID), in.AgentID)})
}

func (s *Server) handleUpdateAgent(c *gin.Context) {
	var in struct {
		Metadata map[string]any `json:"metadata"`
	}
	if !bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, models.AgentUpdatedOutput{Updated: s.store.updateAgent(c.GetHeader(cnst.HeaderAgentID), in.Metadata)})
}

func (s *Server) handleEcho(c *gin.Context) {
	var body any
	if c.Request.ContentLength != 0 {
		_ = json.NewDecoder(c.Request.Body).Decode(&body)
	}
	c.JSON(http.StatusOK, gin.H{
		"method":  c.Request.Method,
		"agent":   c.GetHeader(cnst.HeaderAgentID),
		"user_id": callerOf(c).userID,
		"body":    body,
	})
}
