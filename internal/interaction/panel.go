// ABOUTME: Control panel and form definitions posted by the router's owners
// ABOUTME: Panel buttons carry the ids the router dispatches on

package interaction

import (
	"strconv"

	"github.com/2389/tempvoice/internal/access"
	"github.com/2389/tempvoice/internal/platform"
)

// ControlPanel describes the panel posted into a community's interface channel.
func ControlPanel() platform.Panel {
	return platform.Panel{
		Title:       "🎤 Voice Channel Manager",
		Description: "**Control your temporary voice channel!**\nUse the buttons below to customize your experience.",
		Fields: []platform.PanelField{
			{Name: "🔒 Lock/Unlock", Value: "Prevent others from joining your channel"},
			{Name: "👥 User Limit", Value: "Set maximum participants (0 = unlimited)"},
			{Name: "✏️ Rename", Value: "Customize your channel name"},
			{Name: "🚫 Kick", Value: "Remove unwanted participants"},
			{Name: "👑 Claim", Value: "Take ownership if creator leaves"},
		},
		Rows: [][]platform.PanelButton{
			{
				{ID: ButtonRename, Label: "✏️ Rename", Style: platform.ButtonPrimary},
				{ID: ButtonLimit, Label: "👥 User Limit", Style: platform.ButtonPrimary},
				{ID: ButtonLock, Label: "🔒 Lock/Unlock", Style: platform.ButtonSuccess},
			},
			{
				{ID: ButtonKick, Label: "🚫 Kick User", Style: platform.ButtonDanger},
				{ID: ButtonClaim, Label: "👑 Claim Ownership", Style: platform.ButtonSecondary},
			},
		},
		Footer: "Temporary Voice System",
	}
}

func renameModal() *Modal {
	return &Modal{
		ID:    ModalRename,
		Title: "Rename Channel",
		Input: TextInput{
			ID:        FieldName,
			Label:     "New Channel Name",
			MinLength: access.MinNameLength,
			MaxLength: access.MaxNameLength,
			Required:  true,
		},
	}
}

func limitModal() *Modal {
	return &Modal{
		ID:    ModalLimit,
		Title: "Set User Limit",
		Input: TextInput{
			ID:          FieldLimit,
			Label:       "Max Users (" + strconv.Itoa(access.MinLimit) + "-" + strconv.Itoa(access.MaxLimit) + ")",
			Placeholder: "0 for no limit",
			MinLength:   1,
			MaxLength:   len(strconv.Itoa(access.MaxLimit)),
			Required:    true,
		},
	}
}

// maxOptions is the most entries a selection menu can carry.
const maxOptions = 25

func kickChoice(candidates []platform.Member) *Choice {
	if len(candidates) > maxOptions {
		candidates = candidates[:maxOptions]
	}
	opts := make([]ChoiceOption, 0, len(candidates))
	for _, m := range candidates {
		opts = append(opts, ChoiceOption{Label: m.DisplayName, Value: m.ID})
	}
	return &Choice{
		ID:          SelectKick,
		Placeholder: "Select a member to kick",
		Options:     opts,
	}
}
