package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telegram-usersettings/internal/conversation"
	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/infra/logging"
	"telegram-usersettings/internal/usecase"

	"github.com/rs/zerolog"
)

// CallbackPrefix starts every settings callback: "userset <uid> <action> [args]".
const CallbackPrefix = "userset"

// Conversations is the part of the conversation core the router drives.
type Conversations interface {
	ArmSession(ctx context.Context, req conversation.ArmRequest) (*conversation.Session, error)
	IsSessionArmed(user int64) bool
	CancelSession(user int64)
}

type RouterConfig struct {
	// Premium enables the leech toggles that need a premium user session.
	Premium bool
	// PromptTimeout is the countdown shown when a prompt is first sent.
	PromptTimeout time.Duration
}

type callbackCtx struct {
	cb      *adapter.Callback
	presser Presser
	args    []string
}

func (c *callbackCtx) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

type actionHandler func(ctx context.Context, c *callbackCtx) error

// SettingsRouter serves the user settings menus: it renders screens,
// applies button presses and arms a conversation when a value has to be typed.
type SettingsRouter struct {
	settings usecase.SettingsUseCase
	conv     Conversations
	bot      adapter.Messenger
	log      *zerolog.Logger

	premium bool
	timeout time.Duration
	actions map[string]actionHandler
}

func NewSettingsRouter(settings usecase.SettingsUseCase, conv Conversations, bot adapter.Messenger, cfg RouterConfig, logger *zerolog.Logger) *SettingsRouter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.PromptTimeout <= 0 {
		cfg.PromptTimeout = 60 * time.Second
	}
	r := &SettingsRouter{
		settings: settings,
		conv:     conv,
		bot:      bot,
		log:      logger,
		premium:  cfg.Premium,
		timeout:  cfg.PromptTimeout,
	}
	r.actions = r.actionRoutes()
	return r
}

func (r *SettingsRouter) actionRoutes() map[string]actionHandler {
	return map[string]actionHandler{
		"setevent":          r.setEventAction,
		"menu":              r.menuAction,
		"tog":               r.toggleAction,
		"file":              r.fileAction,
		"set":               r.textAction,
		"addone":            r.textAction,
		"rmone":             r.textAction,
		"pick":              r.pickAction,
		"remove":            r.removeAction,
		"reset":             r.resetAction,
		"confirm_reset_all": r.confirmResetAllAction,
		"do_reset_all":      r.doResetAllAction,
		"view":              r.viewAction,
		"gd":                r.swapUploadAction,
		"rc":                r.swapUploadAction,
		"back":              r.backAction,
	}
}

// HandleCallback routes one "userset ..." button press.
func (r *SettingsRouter) HandleCallback(ctx context.Context, cb *adapter.Callback) error {
	defer logging.TraceDuration(r.log, "SettingsRouter.HandleCallback")()

	parts := strings.Fields(cb.Data)
	if len(parts) < 3 || parts[0] != CallbackPrefix {
		return fmt.Errorf("settings callback %q: %w", cb.Data, domain.ErrInvalidArgument)
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || uid != cb.FromID {
		return r.bot.AnswerCallback(ctx, cb.ID, "Not Yours!", true)
	}
	if cb.Message == nil {
		return fmt.Errorf("settings callback %q: %w", cb.Data, domain.ErrMessageGone)
	}

	// Any press ends a pending prompt for this user.
	r.conv.CancelSession(uid)

	c := &callbackCtx{
		cb:      cb,
		presser: Presser{ID: uid, Name: cb.FromName, Username: cb.FromUser},
		args:    parts[3:],
	}
	action := parts[2]
	if h, ok := r.actions[action]; ok {
		return h(ctx, c)
	}
	if _, ok := usecase.LookupGroup(action); ok {
		return r.screenAction(ctx, c, action)
	}
	return r.closeAction(ctx, c)
}

// HandleSettingsCommand answers /usetting with the main screen.
func (r *SettingsRouter) HandleSettingsCommand(ctx context.Context, msg *adapter.Message) error {
	p := Presser{ID: msg.SenderID, Name: msg.SenderName, Username: msg.SenderUsername}
	r.conv.CancelSession(p.ID)
	scr, err := r.renderScreen(ctx, p, usecase.MainMenu)
	if err != nil {
		return r.fail(ctx, msg.ChatID, err)
	}
	_, err = r.bot.SendMessage(ctx, msg.ChatID, scr.Text, scr.Markup)
	return err
}

// HandleUsersCommand dumps every user's settings; callers restrict it to admins.
func (r *SettingsRouter) HandleUsersCommand(ctx context.Context, msg *adapter.Message) error {
	all, err := r.settings.All(ctx)
	if err != nil {
		return r.fail(ctx, msg.ChatID, err)
	}
	dump := FormatUsersDump(all)
	if dump == "" {
		_, err = r.bot.SendMessage(ctx, msg.ChatID, "No users data!", nil)
		return err
	}
	if len(dump) > maxMessageBytes {
		return r.bot.SendDocument(ctx, msg.ChatID, "users_settings.txt", []byte(dump), "")
	}
	_, err = r.bot.SendMessage(ctx, msg.ChatID, dump, nil)
	return err
}

func (r *SettingsRouter) ack(ctx context.Context, c *callbackCtx) {
	r.alert(ctx, c, "")
}

func (r *SettingsRouter) alert(ctx context.Context, c *callbackCtx, text string) {
	if err := r.bot.AnswerCallback(ctx, c.cb.ID, text, text != ""); err != nil {
		logging.With(ctx, r.log).Debug().Err(err).Int64("tg_id", c.presser.ID).Msg("answer callback failed")
	}
}

func (r *SettingsRouter) edit(ctx context.Context, msg *adapter.Message, scr Screen) error {
	_, err := r.bot.EditMessage(ctx, msg, scr.Text, scr.Markup)
	return err
}

func (r *SettingsRouter) showScreen(ctx context.Context, c *callbackCtx, stype string) error {
	scr, err := r.renderScreen(ctx, c.presser, stype)
	if err != nil {
		return err
	}
	return r.edit(ctx, c.cb.Message, scr)
}

func (r *SettingsRouter) showOption(ctx context.Context, menu *adapter.Message, uid int64, key string) error {
	scr, err := r.optionScreen(ctx, uid, key)
	if err != nil {
		return err
	}
	return r.edit(ctx, menu, scr)
}

func (r *SettingsRouter) setEventAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	return nil
}

func (r *SettingsRouter) screenAction(ctx context.Context, c *callbackCtx, group string) error {
	r.ack(ctx, c)
	return r.showScreen(ctx, c, group)
}

func (r *SettingsRouter) backAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	stype := c.arg(0)
	if stype == "" {
		stype = usecase.MainMenu
	}
	return r.showScreen(ctx, c, stype)
}

// menuAction also serves the Stop button ("menu OPT stop"): the prompt was
// already cancelled above, so both just show the option menu.
func (r *SettingsRouter) menuAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	return r.showOption(ctx, c.cb.Message, c.presser.ID, c.arg(0))
}

func (r *SettingsRouter) toggleAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	key := c.arg(0)
	t, ok := usecase.LookupToggle(key)
	if !ok {
		return fmt.Errorf("toggle %s: %w", key, domain.ErrUnknownOption)
	}
	if err := r.settings.Toggle(ctx, c.presser.ID, key, c.arg(1) == "t"); err != nil {
		return err
	}
	return r.showScreen(ctx, c, t.Group)
}

func (r *SettingsRouter) swapUploadAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	current := strings.Fields(c.cb.Data)[2]
	if _, err := r.settings.SwapDefaultUpload(ctx, c.presser.ID, current); err != nil {
		return err
	}
	return r.showScreen(ctx, c, "general")
}

func (r *SettingsRouter) pickAction(ctx context.Context, c *callbackCtx) error {
	if len(c.args) < 2 {
		return fmt.Errorf("settings callback %q: %w", c.cb.Data, domain.ErrInvalidArgument)
	}
	key := c.arg(0)
	err := r.settings.SetOption(ctx, c.presser.ID, key, strings.Join(c.args[1:], " "))
	if ve, ok := domain.AsValidation(err); ok {
		r.alert(ctx, c, ve.Msg)
		return nil
	}
	if err != nil {
		return err
	}
	r.ack(ctx, c)
	return r.showOption(ctx, c.cb.Message, c.presser.ID, key)
}

func (r *SettingsRouter) removeAction(ctx context.Context, c *callbackCtx) error {
	key := c.arg(0)
	if err := r.settings.Remove(ctx, c.presser.ID, key); err != nil {
		return err
	}
	r.alert(ctx, c, "Removed!")
	return r.showOption(ctx, c.cb.Message, c.presser.ID, key)
}

func (r *SettingsRouter) resetAction(ctx context.Context, c *callbackCtx) error {
	key := c.arg(0)
	if err := r.settings.Reset(ctx, c.presser.ID, key); err != nil {
		return err
	}
	r.alert(ctx, c, "Reset Done!")
	return r.showOption(ctx, c.cb.Message, c.presser.ID, key)
}

func (r *SettingsRouter) confirmResetAllAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	uid := c.presser.ID
	b := NewButtonMaker()
	b.DataButton("Yes", cbData(uid, "do_reset_all", "yes"))
	b.DataButton("No", cbData(uid, "do_reset_all", "no"))
	b.DataButton("Close", cbData(uid, "close"), PosFooter)
	return r.edit(ctx, c.cb.Message, Screen{
		Text:   "<i>Are you sure you want to reset all your user settings?</i>",
		Markup: b.BuildMenu(2),
	})
}

func (r *SettingsRouter) doResetAllAction(ctx context.Context, c *callbackCtx) error {
	if c.arg(0) != "yes" {
		r.alert(ctx, c, "Reset Cancelled.")
		return r.showScreen(ctx, c, usecase.MainMenu)
	}
	if err := r.settings.ResetAll(ctx, c.presser.ID); err != nil {
		return err
	}
	r.alert(ctx, c, "Reset Done!")
	return r.showScreen(ctx, c, usecase.MainMenu)
}

func (r *SettingsRouter) viewAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	uid := c.presser.ID
	if !r.settings.HasFile(uid, "THUMBNAIL") {
		return nil
	}
	return r.bot.SendPhotoFile(ctx, c.cb.Message.ChatID, r.settings.FilePath(uid, "THUMBNAIL"), c.presser.mention())
}

func (r *SettingsRouter) closeAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	msg := c.cb.Message
	if err := r.bot.DeleteMessage(ctx, msg.ChatID, msg.ID); err != nil {
		return err
	}
	if msg.ReplyToID != 0 {
		if err := r.bot.DeleteMessage(ctx, msg.ChatID, msg.ReplyToID); err != nil {
			logging.With(ctx, r.log).Debug().Err(err).Int("message_id", msg.ReplyToID).Msg("delete command message failed")
		}
	}
	return nil
}

// fileAction prompts for a document (or photo, for the thumbnail) and
// stores whatever the user sends next.
func (r *SettingsRouter) fileAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	key := c.arg(0)
	o, ok := usecase.LookupOption(key)
	if !ok || !o.IsFile() {
		return fmt.Errorf("file prompt %s: %w", key, domain.ErrUnknownOption)
	}
	mode := conversation.ModeDocument
	if o.Input == usecase.InputPhotoOrDocument {
		mode = conversation.ModePhotoOrDocument
	}
	text := fmt.Sprintf("⌬ <b>Set %s</b>\n\n%s", prettyKey(key), o.Ask)
	return r.prompt(ctx, c, key, text, mode, func(ctx context.Context, msg *adapter.Message) error {
		return r.saveFile(ctx, msg, key)
	})
}

// textAction serves set, addone and rmone: all three wait for a text reply.
func (r *SettingsRouter) textAction(ctx context.Context, c *callbackCtx) error {
	r.ack(ctx, c)
	key := c.arg(0)
	o, ok := usecase.LookupOption(key)
	if !ok || o.IsFile() {
		return fmt.Errorf("text prompt %s: %w", key, domain.ErrUnknownOption)
	}
	uid := c.presser.ID

	var (
		ask   string
		apply func(ctx context.Context, raw string) error
	)
	switch strings.Fields(c.cb.Data)[2] {
	case "addone":
		ask = fmt.Sprintf("Add one or more string key and value to %s. Example: {'key 1': 62625261, 'key 2': 'value 2'}.", key)
		apply = func(ctx context.Context, raw string) error { return r.settings.AddOne(ctx, uid, key, raw) }
	case "rmone":
		ask = fmt.Sprintf("Remove one or more key from %s. Example: key 1/key2/key 3.", key)
		apply = func(ctx context.Context, raw string) error { return r.settings.RemoveOne(ctx, uid, key, raw) }
	default:
		ask = o.Ask
		apply = func(ctx context.Context, raw string) error { return r.settings.SetOption(ctx, uid, key, raw) }
	}

	scr, err := r.optionScreen(ctx, uid, key)
	if err != nil {
		return err
	}
	return r.prompt(ctx, c, key, scr.Text+"\n\n"+ask, conversation.ModeText, func(ctx context.Context, msg *adapter.Message) error {
		return apply(ctx, msg.Text)
	})
}

// prompt edits the menu into a prompt with Stop/Back/Close and arms a
// session for the presser. On a valid reply the user's message is deleted
// and the option menu comes back; on timeout the menu comes back unchanged.
func (r *SettingsRouter) prompt(ctx context.Context, c *callbackCtx, key, text string, mode conversation.Mode, apply func(ctx context.Context, msg *adapter.Message) error) error {
	uid := c.presser.ID
	menu := c.cb.Message

	b := NewButtonMaker()
	b.DataButton("Stop", cbData(uid, "menu", key, "stop"))
	b.DataButton("Back", cbData(uid, "menu", key), PosFooter)
	b.DataButton("Close", cbData(uid, "close"), PosFooter)
	if err := r.edit(ctx, menu, Screen{
		Text:   text + "\n" + conversation.CountdownLine(r.timeout),
		Markup: b.BuildMenu(1),
	}); err != nil {
		return err
	}

	log := logging.With(ctx, r.log)
	_, err := r.conv.ArmSession(ctx, conversation.ArmRequest{
		UserID:          uid,
		ChatID:          menu.ChatID,
		PromptMessageID: menu.ID,
		Mode:            mode,
		OnMatch: func(ctx context.Context, msg *adapter.Message) {
			if err := apply(ctx, msg); err != nil {
				r.replyError(ctx, msg, key, err)
				return
			}
			if err := r.bot.DeleteMessage(ctx, msg.ChatID, msg.ID); err != nil {
				log.Debug().Err(err).Int64("tg_id", uid).Msg("delete reply failed")
			}
			if err := r.showOption(ctx, menu, uid, key); err != nil {
				log.Warn().Err(err).Int64("tg_id", uid).Str("option", key).Msg("re-render option menu failed")
			}
		},
		OnTimeout: func(ctx context.Context) {
			if err := r.showOption(ctx, menu, uid, key); err != nil {
				log.Warn().Err(err).Int64("tg_id", uid).Str("option", key).Msg("re-render option menu after timeout failed")
			}
		},
	})
	if err != nil {
		return fmt.Errorf("arm %s prompt: %w", key, err)
	}
	return nil
}

func (r *SettingsRouter) saveFile(ctx context.Context, msg *adapter.Message, key string) error {
	f := msg.Document
	if f == nil {
		f = msg.Photo
	}
	if f == nil {
		return domain.NewValidationError(key, "Send a file.")
	}
	var buf bytes.Buffer
	if err := r.bot.DownloadFile(ctx, f.ID, &buf); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	_, err := r.settings.SetFile(ctx, msg.SenderID, key, f.Name, &buf)
	return err
}

// replyError answers an invalid reply inline; the prompt is not re-armed.
func (r *SettingsRouter) replyError(ctx context.Context, msg *adapter.Message, key string, err error) {
	text := "Something went wrong while saving the value."
	if ve, ok := domain.AsValidation(err); ok {
		text = ve.Msg
	} else {
		logging.With(ctx, r.log).Error().Err(err).Int64("tg_id", msg.SenderID).Str("option", key).Msg("apply settings reply failed")
	}
	if _, err := r.bot.SendMessage(ctx, msg.ChatID, text, nil); err != nil {
		logging.With(ctx, r.log).Debug().Err(err).Msg("send validation reply failed")
	}
}

func (r *SettingsRouter) fail(ctx context.Context, chatID int64, err error) error {
	if _, sendErr := r.bot.SendMessage(ctx, chatID, "Settings are unavailable right now, try again later.", nil); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}
