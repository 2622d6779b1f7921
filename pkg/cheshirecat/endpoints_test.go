package cheshirecat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	mem := f.client.Memory
	ctx := context.Background()

	created, err := mem.PostMemoryPoint(ctx, models.CollectionDeclarative, "agent", "u1",
		models.NewMemoryPointBuilder().SetContent("cats like fish").Build())
	require.NoError(t, err)
	assert.Equal(t, "u1", created.Metadata["source"])

	explicit, err := mem.PostMemoryPoint(ctx, models.CollectionDeclarative, "agent", "u1",
		models.MemoryPoint{Content: "dogs like bones", Metadata: map[string]any{"source": "web"}})
	require.NoError(t, err)
	assert.Equal(t, "web", explicit.Metadata["source"])

	updated, err := mem.PutMemoryPoint(ctx, models.CollectionDeclarative, "agent", "u1",
		models.MemoryPoint{Content: "dogs chase cats"}, explicit.ID)
	require.NoError(t, err)
	assert.Equal(t, explicit.ID, updated.ID)
	assert.Equal(t, "u1", updated.Metadata["source"])

	points, err := mem.GetMemoryPoints(ctx, models.CollectionDeclarative, "agent", 10, 0, nil)
	require.NoError(t, err)
	assert.Len(t, points.Points, 2)
	assert.Nil(t, points.NextOffset)

	recall, err := mem.GetMemoryRecall(ctx, "fish", "agent", "u1", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, "fish", recall.Query.Text)
	require.Len(t, recall.Vectors.Collections["declarative"], 1)
	assert.Equal(t, created.ID, recall.Vectors.Collections["declarative"][0].ID)

	req, ok := f.cat.LastRequest("/memory/recall")
	require.True(t, ok)
	assert.Equal(t, "5", req.Query.Get("k"))
	assert.Empty(t, req.Query.Get("metadata"))

	_, err = mem.GetMemoryRecall(ctx, "cats", "agent", "u1", 0, map[string]any{"source": "u1"})
	require.NoError(t, err)
	req, _ = f.cat.LastRequest("/memory/recall")
	assert.JSONEq(t, `{"source":"u1"}`, req.Query.Get("metadata"))
	assert.Empty(t, req.Query.Get("k"))

	colls, err := mem.GetMemoryCollections(ctx, "agent")
	require.NoError(t, err)
	for _, c := range colls.Collections {
		if c.Name == "declarative" {
			assert.Equal(t, 2, c.VectorsCount)
		}
	}

	del, err := mem.DeleteMemoryPoint(ctx, models.CollectionDeclarative, created.ID, "agent")
	require.NoError(t, err)
	assert.Equal(t, created.ID, del.Deleted)

	_, err = mem.DeleteMemoryPoint(ctx, models.CollectionDeclarative, created.ID, "agent")
	assert.True(t, IsNotFound(err))

	op, err := mem.DeleteMemoryPointsByMetadata(ctx, models.CollectionDeclarative, "agent", map[string]any{"source": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "completed", op.Deleted.Status)

	points, err = mem.GetMemoryPoints(ctx, models.CollectionDeclarative, "agent", 10, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, points.Points)

	wiped, err := mem.DeleteAllMemoryCollectionPoints(ctx, "agent")
	require.NoError(t, err)
	assert.True(t, wiped.Deleted["episodic"])

	single, err := mem.DeleteAllSingleMemoryCollectionPoints(ctx, models.CollectionProcedural, "agent")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"procedural": true}, single.Deleted)
}

func TestMemoryPointsPaging(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	mem := f.client.Memory
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := mem.PostMemoryPoint(ctx, models.CollectionEpisodic, "agent", "u1", models.MemoryPoint{Content: text})
		require.NoError(t, err)
	}

	page, err := mem.GetMemoryPoints(ctx, models.CollectionEpisodic, "agent", 2, 0, map[string]any{"source": "u1"})
	require.NoError(t, err)
	assert.Len(t, page.Points, 2)
	assert.EqualValues(t, 2, page.NextOffset)

	page, err = mem.GetMemoryPoints(ctx, models.CollectionEpisodic, "agent", 2, 2, nil)
	require.NoError(t, err)
	assert.Len(t, page.Points, 1)
	assert.Nil(t, page.NextOffset)
}

func TestConversationHistory(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	mem := f.client.Memory
	ctx := context.Background()

	out, err := mem.PostConversationHistory(ctx, models.ConversationHistoryInput{
		Who:  models.RoleUser,
		Text: "remember me",
		Why:  models.NewWhyBuilder().SetInput("remember me").Build(),
	}, "agent", "u1")
	require.NoError(t, err)
	require.Len(t, out.History, 1)
	assert.Equal(t, "user", out.History[0].Who)
	require.NotNil(t, out.History[0].Content.Why)
	assert.Equal(t, "remember me", out.History[0].Content.Why.Input)

	got, err := mem.GetConversationHistory(ctx, "agent", "u1")
	require.NoError(t, err)
	assert.Len(t, got.History, 1)

	other, err := mem.GetConversationHistory(ctx, "agent", "u2")
	require.NoError(t, err)
	assert.Empty(t, other.History)

	del, err := mem.DeleteConversationHistory(ctx, "agent", "u1")
	require.NoError(t, err)
	assert.True(t, del.Deleted)
}

func TestConversationEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	conv := f.client.Conversation
	ctx := context.Background()

	reply, err := f.client.Message.SendHTTPMessage(ctx, *models.NewMessage("hello"), "agent", "u1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "chat-1", reply.ChatID)
	assert.Equal(t, "You said: hello", reply.Message.Text)

	list, err := conv.GetConversations(ctx, "agent", "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Name)
	assert.Equal(t, 2, list[0].NumMessages)

	history, err := conv.GetConversationHistory(ctx, "agent", "u1", "chat-1")
	require.NoError(t, err)
	assert.Len(t, history.History, 2)

	_, err = conv.PutConversationAttributes(ctx, "agent", "u1", "chat-1", models.ConversationAttributes{})
	assert.ErrorIs(t, err, cnst.ErrNameOrMetadataRequired)

	changed, err := conv.PutConversationAttributes(ctx, "agent", "u1", "chat-1", models.ConversationAttributes{Name: "greetings"})
	require.NoError(t, err)
	assert.True(t, changed.Changed)

	one, err := conv.GetConversation(ctx, "agent", "u1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "greetings", one.Name)

	_, err = conv.GetConversation(ctx, "agent", "u2", "chat-1")
	assert.True(t, IsNotFound(err))

	del, err := conv.DeleteConversation(ctx, "agent", "u1", "chat-1")
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	list, err = conv.GetConversations(ctx, "agent", "u1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPluginsEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	plugins := f.client.Plugins
	ctx := context.Background()

	all, err := plugins.GetAvailablePlugins(ctx, "", "agent")
	require.NoError(t, err)
	require.Len(t, all.Installed, 1)
	assert.Equal(t, models.Tags("core, default"), all.Installed[0].Tags)
	require.Len(t, all.Registry, 1)
	assert.Equal(t, models.Tags("weather, tools"), all.Registry[0].Tags)
	assert.Equal(t, []string{"weather", "tools"}, all.Registry[0].Tags.List())

	filtered, err := plugins.GetAvailablePlugins(ctx, "nothing-matches", "agent")
	require.NoError(t, err)
	assert.Empty(t, filtered.Installed)
	assert.Equal(t, "nothing-matches", filtered.Filters.Query)

	toggled, err := plugins.PutTogglePlugin(ctx, "core_plugin", "agent")
	require.NoError(t, err)
	assert.Equal(t, "Plugin core_plugin deactivated", toggled.Info)

	ps, err := plugins.GetPluginSettings(ctx, "core_plugin", "agent")
	require.NoError(t, err)
	assert.Nil(t, ps.Scheme)

	put, err := plugins.PutPluginSettings(ctx, "core_plugin", map[string]any{"temperature": 0.5}, "agent")
	require.NoError(t, err)
	assert.Equal(t, 0.5, put.Value["temperature"])

	settings, err := plugins.GetPluginsSettings(ctx, "agent")
	require.NoError(t, err)
	require.Len(t, settings.Settings, 1)
	assert.Equal(t, 0.5, settings.Settings[0].Value["temperature"])

	_, err = plugins.PutTogglePlugin(ctx, "ghost", "agent")
	assert.True(t, IsNotFound(err))
}

func TestAdminsEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	admins := f.client.Admins
	ctx := context.Background()

	installed, err := admins.PostInstallPluginFromZip(ctx, Upload{
		Name:        "my_plugin.zip",
		ContentType: "application/zip",
		Body:        strings.NewReader("PK\x03\x04"),
	})
	require.NoError(t, err)
	assert.Equal(t, "my_plugin.zip", installed.Filename)
	assert.Equal(t, "application/zip", installed.ContentType)
	assert.NotEmpty(t, installed.Info)

	req, ok := f.cat.LastRequest("/plugins/install/upload")
	require.True(t, ok)
	assert.Equal(t, cnst.SystemAgentID, req.Header.Get("X-Agent-ID"))
	assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data"))

	details, err := admins.GetPluginDetails(ctx, "my_plugin")
	require.NoError(t, err)
	assert.Equal(t, "my_plugin", details.Data["id"])

	fromRegistry, err := admins.PostInstallPluginFromRegistry(ctx, "https://example.com/weather.zip")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/weather.zip", fromRegistry.URL)

	list, err := admins.GetAvailablePlugins(ctx, "weather")
	require.NoError(t, err)
	require.Len(t, list.Installed, 1)
	assert.Equal(t, "weather", list.Installed[0].ID)

	settings, err := admins.GetPluginsSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, settings.Settings, 3)

	one, err := admins.GetPluginSettings(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, "weather", one.Name)
	assert.Nil(t, one.Scheme)

	toggled, err := admins.PutTogglePlugin(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, "Plugin weather activated", toggled.Info)

	deleted, err := admins.DeletePlugin(ctx, "my_plugin")
	require.NoError(t, err)
	assert.Equal(t, "my_plugin", deleted.Deleted)

	_, err = admins.GetPluginDetails(ctx, "my_plugin")
	assert.True(t, IsNotFound(err))
}

func TestUsersEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	users := f.client.Users
	ctx := context.Background()

	alice, err := users.PostUser(ctx, "agent", models.UserInput{Username: "alice", Password: "wonderland"})
	require.NoError(t, err)
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, []string{"WRITE"}, alice.Permissions["CHAT"])

	_, err = users.PostUser(ctx, "agent", models.UserInput{Username: "alice", Password: "again"})
	require.Error(t, err)

	list, err := users.GetUsers(ctx, "agent")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	renamed, err := users.PutUser(ctx, alice.ID, "agent", models.UserInput{Username: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", renamed.Username)

	got, err := users.GetUser(ctx, alice.ID, "agent")
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)

	gone, err := users.DeleteUser(ctx, alice.ID, "agent")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, gone.ID)

	_, err = users.GetUser(ctx, alice.ID, "agent")
	assert.True(t, IsNotFound(err))
}

func TestAuthEndpoint(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.client.Auth.Token(ctx, "admin", "nope")
	require.Error(t, err)
	assert.Empty(t, f.client.Token())

	tok, err := f.client.Auth.Token(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)

	perms, err := f.client.Auth.GetAvailablePermissions(ctx)
	require.NoError(t, err)
	assert.Contains(t, perms["MEMORY"], "READ")

	other := New(Config{Host: f.client.cfg.Host, Port: f.client.cfg.Port})
	me, err := other.Auth.Me(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, other.Token())
	assert.True(t, me.Success)
	require.Len(t, me.Agents, 1)
	assert.Equal(t, "agent", me.Agents[0].AgentID)
	assert.Equal(t, "admin", me.Agents[0].User.Username)
}

func TestSettingsEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	settings := f.client.Settings
	ctx := context.Background()

	created, err := settings.PostSetting(ctx, models.NewSettingInputBuilder().SetName("theme").Build(), "agent")
	require.NoError(t, err)
	id := created.Setting.SettingID
	require.NotEmpty(t, id)
	assert.Equal(t, map[string]any{}, created.Setting.Value)

	put, err := settings.PutSetting(ctx, id, models.SettingInput{Name: "theme", Value: map[string]any{"dark": true}}, "agent")
	require.NoError(t, err)
	assert.Equal(t, true, put.Setting.Value["dark"])

	got, err := settings.GetSetting(ctx, id, "agent")
	require.NoError(t, err)
	assert.Equal(t, "theme", got.Setting.Name)

	all, err := settings.GetSettings(ctx, "agent")
	require.NoError(t, err)
	assert.Len(t, all.Settings, 1)

	del, err := settings.DeleteSetting(ctx, id, "agent")
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, err = settings.GetSetting(ctx, id, "agent")
	assert.True(t, IsNotFound(err))
}

func TestEmbedderUsesSystemAgent(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	ctx := context.Background()

	for _, agentID := range []string{"agent-1", ""} {
		_, err := f.client.Embedder.GetSettings(ctx, agentID)
		require.NoError(t, err)
		req, ok := f.cat.LastRequest("/embedder/settings")
		require.True(t, ok)
		assert.Equal(t, "system", req.Header.Get("X-Agent-ID"), "agent %q", agentID)
	}

	_, err := f.client.Factory(FactoryEmbedder).PutSetting(ctx, "EmbedderDumbConfig", nil, "agent-1")
	require.NoError(t, err)
	req, ok := f.cat.LastRequest("/embedder/settings/EmbedderDumbConfig")
	require.True(t, ok)
	assert.Equal(t, "system", req.Header.Get("X-Agent-ID"))

	_, err = f.client.LargeLanguageModel.GetSettings(ctx, "agent-1")
	require.NoError(t, err)
	req, ok = f.cat.LastRequest("/llm/settings")
	require.True(t, ok)
	assert.Equal(t, "agent-1", req.Header.Get("X-Agent-ID"))
}

func TestFactoryEndpoints(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	ctx := context.Background()

	endpoints := map[Factory]*FactoryEndpoint{
		FactoryLLM:             f.client.LargeLanguageModel,
		FactoryEmbedder:        f.client.Embedder,
		FactoryChunker:         f.client.Chunker,
		FactoryVectorDatabase:  f.client.VectorDatabase,
		FactoryFileManager:     f.client.FileManager,
		FactoryAuthHandler:     f.client.AuthHandler,
		FactoryAgenticWorkflow: f.client.AgenticWorkflow,
	}
	require.Len(t, endpoints, len(Factories()))

	for name, ep := range endpoints {
		t.Run(string(name), func(t *testing.T) {
			assert.Equal(t, name, ep.Name())
			out, err := ep.GetSettings(ctx, "agent")
			require.NoError(t, err)
			require.Len(t, out.Settings, 1)
			assert.Equal(t, out.SelectedConfiguration, out.Settings[0].Name)
			assert.Nil(t, out.Settings[0].Scheme)

			one, err := ep.GetSetting(ctx, out.SelectedConfiguration, "agent")
			require.NoError(t, err)
			assert.Nil(t, one.Scheme)
		})
	}

	put, err := f.client.Factory(FactoryLLM).PutSetting(ctx, "LLMOpenAIConfig", map[string]any{"model": "gpt"}, "agent")
	require.NoError(t, err)
	assert.Equal(t, "LLMOpenAIConfig", put.Scheme["title"])

	out, err := f.client.LargeLanguageModel.GetSettings(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, "LLMOpenAIConfig", out.SelectedConfiguration)
	assert.Len(t, out.Settings, 2)

	_, err = f.client.Embedder.GetSetting(ctx, "Missing", "agent")
	assert.True(t, IsNotFound(err))
}

func TestParseFactory(t *testing.T) {
	for _, name := range Factories() {
		got, err := ParseFactory(string(name))
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}
	_, err := ParseFactory("toaster")
	assert.Error(t, err)
}

func decodeRaw(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRabbitHoleEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	rh := f.client.RabbitHole
	ctx := context.Background()

	raw, err := rh.PostFile(ctx, Upload{Name: "notes.pdf", Body: strings.NewReader("%PDF-1.4")}, "agent", &models.UploadOptions{
		ChunkSize:    256,
		ChunkOverlap: 32,
		Metadata:     map[string]any{"topic": "cats"},
	})
	require.NoError(t, err)
	info := decodeRaw(t, raw)
	assert.Equal(t, "notes.pdf", info["filename"])
	assert.Equal(t, "application/pdf", info["content_type"])
	assert.EqualValues(t, 256, info["chunk_size"])
	assert.EqualValues(t, 32, info["chunk_overlap"])
	assert.Equal(t, map[string]any{"topic": "cats"}, info["metadata"])

	raw, err = rh.PostFile(ctx, Upload{Name: "plain.txt", Body: strings.NewReader("x")}, "agent", nil)
	require.NoError(t, err)
	info = decodeRaw(t, raw)
	assert.NotContains(t, info, "chunk_size")
	assert.NotContains(t, info, "metadata")

	raw, err = rh.PostFiles(ctx, []Upload{
		{Name: "a.txt", Body: strings.NewReader("a")},
		{Name: "b.txt", Body: strings.NewReader("b")},
	}, "agent", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"a.txt", "b.txt"}, decodeRaw(t, raw)["filenames"])

	_, err = rh.PostFiles(ctx, nil, "agent", nil)
	require.Error(t, err)

	_, err = rh.PostFile(ctx, Upload{Name: "empty.txt"}, "agent", nil)
	require.Error(t, err)

	raw, err = rh.PostWeb(ctx, models.WebInput{URL: "https://example.com", ChunkSize: 128}, "agent")
	require.NoError(t, err)
	web := decodeRaw(t, raw)
	assert.Equal(t, "https://example.com", web["url"])
	assert.EqualValues(t, 128, web["chunk_size"])

	raw, err = rh.PostMemory(ctx, Upload{Name: "memory.json", Body: strings.NewReader("{}")}, "agent")
	require.NoError(t, err)
	assert.Equal(t, "application/json", decodeRaw(t, raw)["content_type"])

	mimes, err := rh.GetAllowedMimeTypes(ctx, "agent")
	require.NoError(t, err)
	assert.Contains(t, mimes.Allowed, "text/plain")
}

func TestUtilsEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	utils := f.client.Utils
	ctx := context.Background()

	created, err := utils.PostAgentCreate(ctx, "cheshire", map[string]any{"owner": "alice"})
	require.NoError(t, err)
	assert.True(t, created.Created)

	again, err := utils.PostAgentCreate(ctx, "cheshire", nil)
	require.NoError(t, err)
	assert.False(t, again.Created)

	cloned, err := utils.PostAgentClone(ctx, "cheshire", "dinah")
	require.NoError(t, err)
	assert.True(t, cloned.Cloned)

	agents, err := utils.GetAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 3)
	assert.Equal(t, "alice", agents[2].Metadata["owner"])

	updated, err := utils.PutAgent(ctx, "dinah", map[string]any{"owner": "bob"})
	require.NoError(t, err)
	assert.True(t, updated.Updated)

	reset, err := utils.PostAgentReset(ctx, "dinah")
	require.NoError(t, err)
	assert.True(t, reset.DeletedSettings)

	destroyed, err := utils.PostAgentDestroy(ctx, "dinah")
	require.NoError(t, err)
	assert.True(t, destroyed.DeletedPluginFolders)

	req, ok := f.cat.LastRequest("/utils/agents/destroy/")
	require.True(t, ok)
	assert.Equal(t, "dinah", req.Header.Get("X-Agent-ID"))

	factory, err := utils.PostFactoryReset(ctx)
	require.NoError(t, err)
	assert.True(t, factory.DeletedMemories)

	agents, err = utils.GetAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "agent", agents[0].AgentID)
}

func TestCustomEndpoint(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	custom := f.client.Custom
	ctx := context.Background()

	raw, err := custom.PostCustom(ctx, "/custom/echo", "agent", "u1", map[string]any{"n": 1})
	require.NoError(t, err)
	echo := decodeRaw(t, raw)
	assert.Equal(t, "POST", echo["method"])
	assert.Equal(t, "agent", echo["agent"])
	assert.Equal(t, "u1", echo["user_id"])
	assert.Equal(t, map[string]any{"n": float64(1)}, echo["body"])

	raw, err = custom.GetCustom(ctx, "/custom/echo", "agent", "")
	require.NoError(t, err)
	echo = decodeRaw(t, raw)
	assert.Equal(t, "GET", echo["method"])
	assert.Equal(t, "user", echo["user_id"])
	assert.Nil(t, echo["body"])

	for _, fn := range []func() (json.RawMessage, error){
		func() (json.RawMessage, error) { return custom.PutCustom(ctx, "/custom/echo", "agent", "u1", nil) },
		func() (json.RawMessage, error) { return custom.DeleteCustom(ctx, "/custom/echo", "agent", "u1", nil) },
	} {
		raw, err := fn()
		require.NoError(t, err)
		assert.Contains(t, []any{"PUT", "DELETE"}, decodeRaw(t, raw)["method"])
	}

	_, err = custom.GetCustom(ctx, "/custom/missing", "agent", "u1")
	assert.True(t, IsNotFound(err))
}
