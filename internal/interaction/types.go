// ABOUTME: Platform-neutral inbound interactions and outbound responses
// ABOUTME: Custom ids tie panel buttons, forms, and selections together

package interaction

// Control-panel component ids.
const (
	ButtonRename = "voice_rename"
	ButtonLimit  = "voice_limit"
	ButtonLock   = "voice_lock"
	ButtonKick   = "voice_kick"
	ButtonClaim  = "voice_claim"

	ModalRename = "rename_modal"
	FieldName   = "new_name"
	ModalLimit  = "limit_modal"
	FieldLimit  = "user_limit"

	SelectKick = "kick_select"
)

// Kind is the type of inbound interaction.
type Kind int

const (
	KindButton Kind = iota + 1
	KindModal
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindModal:
		return "modal"
	case KindSelect:
		return "select"
	default:
		return "unknown"
	}
}

// Interaction is one inbound user action.
type Interaction struct {
	Kind     Kind
	GuildID  string
	UserID   string
	CustomID string
	Fields   map[string]string // form inputs by id
	Values   []string          // selected option values
}

// ResponseKind says how a Response should be rendered.
type ResponseKind int

const (
	// ResponseNone means the interaction is not ours and gets no reply.
	ResponseNone ResponseKind = iota
	// ResponseMessage is a private text reply.
	ResponseMessage
	// ResponseModal opens a form.
	ResponseModal
	// ResponseChoice is a private reply carrying a selection menu.
	ResponseChoice
)

// Response is the router's answer to an Interaction. Replies are always
// visible only to the invoking user.
type Response struct {
	Kind    ResponseKind
	Content string
	Modal   *Modal
	Choice  *Choice
}

// Modal is a single-input form.
type Modal struct {
	ID    string
	Title string
	Input TextInput
}

// TextInput is a short text field.
type TextInput struct {
	ID          string
	Label       string
	Placeholder string
	MinLength   int
	MaxLength   int
	Required    bool
}

// Choice is a selection menu.
type Choice struct {
	ID          string
	Placeholder string
	Options     []ChoiceOption
}

// ChoiceOption is one selectable entry.
type ChoiceOption struct {
	Label string
	Value string
}

func message(content string) Response {
	return Response{Kind: ResponseMessage, Content: content}
}
