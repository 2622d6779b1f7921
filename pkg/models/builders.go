package models

// MessageBuilder assembles a Message.
type MessageBuilder struct {
	msg Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{}
}

func (b *MessageBuilder) SetText(text string) *MessageBuilder {
	b.msg.Text = text
	return b
}

func (b *MessageBuilder) SetImage(image string) *MessageBuilder {
	b.msg.Image = image
	return b
}

func (b *MessageBuilder) SetField(key string, value any) *MessageBuilder {
	if b.msg.AdditionalFields == nil {
		b.msg.AdditionalFields = make(map[string]any)
	}
	b.msg.AdditionalFields[key] = value
	return b
}

func (b *MessageBuilder) Build() Message {
	out := b.msg
	if b.msg.AdditionalFields != nil {
		out.AdditionalFields = make(map[string]any, len(b.msg.AdditionalFields))
		for k, v := range b.msg.AdditionalFields {
			out.AdditionalFields[k] = v
		}
	}
	return out
}

type MemoryPointBuilder struct {
	content  string
	metadata map[string]any
}

func NewMemoryPointBuilder() *MemoryPointBuilder {
	return &MemoryPointBuilder{}
}

func (b *MemoryPointBuilder) SetContent(content string) *MemoryPointBuilder {
	b.content = content
	return b
}

func (b *MemoryPointBuilder) SetMetadata(metadata map[string]any) *MemoryPointBuilder {
	b.metadata = metadata
	return b
}

// Build never returns a nil metadata map.
func (b *MemoryPointBuilder) Build() MemoryPoint {
	md := make(map[string]any, len(b.metadata))
	for k, v := range b.metadata {
		md[k] = v
	}
	return MemoryPoint{Content: b.content, Metadata: md}
}

type MemoryBuilder struct {
	mem Memory
}

func NewMemoryBuilder() *MemoryBuilder {
	return &MemoryBuilder{}
}

func (b *MemoryBuilder) SetEpisodic(v []map[string]any) *MemoryBuilder {
	b.mem.Episodic = v
	return b
}

func (b *MemoryBuilder) SetDeclarative(v []map[string]any) *MemoryBuilder {
	b.mem.Declarative = v
	return b
}

func (b *MemoryBuilder) SetProcedural(v []map[string]any) *MemoryBuilder {
	b.mem.Procedural = v
	return b
}

func (b *MemoryBuilder) Build() Memory {
	m := b.mem
	if m.Episodic == nil {
		m.Episodic = []map[string]any{}
	}
	if m.Declarative == nil {
		m.Declarative = []map[string]any{}
	}
	if m.Procedural == nil {
		m.Procedural = []map[string]any{}
	}
	return m
}

type WhyBuilder struct {
	why Why
}

func NewWhyBuilder() *WhyBuilder {
	return &WhyBuilder{}
}

func (b *WhyBuilder) SetInput(input string) *WhyBuilder {
	b.why.Input = input
	return b
}

func (b *WhyBuilder) SetIntermediateSteps(steps []map[string]any) *WhyBuilder {
	b.why.IntermediateSteps = steps
	return b
}

func (b *WhyBuilder) SetMemory(m Memory) *WhyBuilder {
	b.why.Memory = m
	return b
}

func (b *WhyBuilder) SetModelInteractions(v []map[string]any) *WhyBuilder {
	b.why.ModelInteractions = v
	return b
}

// Build returns a copy of the built value; the DTO fields holding it are pointers.
func (b *WhyBuilder) Build() *Why {
	w := b.why
	if w.IntermediateSteps == nil {
		w.IntermediateSteps = []map[string]any{}
	}
	if w.ModelInteractions == nil {
		w.ModelInteractions = []map[string]any{}
	}
	return &w
}

type SettingInputBuilder struct {
	in SettingInput
}

func NewSettingInputBuilder() *SettingInputBuilder {
	return &SettingInputBuilder{}
}

func (b *SettingInputBuilder) SetName(name string) *SettingInputBuilder {
	b.in.Name = name
	return b
}

func (b *SettingInputBuilder) SetValue(value map[string]any) *SettingInputBuilder {
	b.in.Value = value
	return b
}

func (b *SettingInputBuilder) SetCategory(category string) *SettingInputBuilder {
	b.in.Category = category
	return b
}

func (b *SettingInputBuilder) Build() SettingInput {
	in := b.in
	if in.Value == nil {
		in.Value = map[string]any{}
	}
	return in
}
