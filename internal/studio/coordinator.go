// Package studio coordinates the prompt lifecycle of one device: the working
// draft, the AI calls that transform it, and the persisted prompt lists.
package studio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra"
	"promptarchitect/internal/optimistic"
	"promptarchitect/internal/validation"
)

// LikeStore persists the device's liked-prompt set.
type LikeStore interface {
	LikedSet(deviceID string) ([]string, error)
	SaveLikedSet(deviceID string, ids []string) error
}

// ImageStore turns a published image into a durable URL.
type ImageStore interface {
	SaveImage(ctx context.Context, img *domain.Image) (string, error)
}

// Deps are the collaborators shared by every coordinator.
type Deps struct {
	Style   domain.StyleService
	Prompts domain.PromptRepository
	Likes   LikeStore
	// Images is optional. Without it published images are stored inline.
	Images ImageStore
	Logger infra.Logger
	Now    func() time.Time
}

// Coordinator owns one device's draft and list views. State transitions are
// serialized by mu; AI and persistence calls run without holding it.
type Coordinator struct {
	deviceID string
	deps     Deps
	logger   infra.Logger
	validate *validation.Validator

	mu        sync.Mutex
	d         draft
	session   *domain.Session
	community []domain.Prompt
	library   []domain.Prompt
	liked     map[string]struct{}
	inflight  map[opClass]struct{}
}

// NewCoordinator restores the device's liked set and returns an empty draft.
func NewCoordinator(deviceID string, deps Deps) (*Coordinator, error) {
	if deps.Style == nil || deps.Prompts == nil || deps.Likes == nil {
		return nil, errors.New("studio: style, prompts and likes are required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	ids, err := deps.Likes.LikedSet(deviceID)
	if err != nil {
		return nil, fmt.Errorf("studio: load liked set: %w", err)
	}
	liked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		liked[id] = struct{}{}
	}
	return &Coordinator{
		deviceID: deviceID,
		deps:     deps,
		logger:   deps.Logger.With().Str("device_id", deviceID).Logger(),
		validate: validation.New(),
		d:        newDraft(),
		liked:    liked,
		inflight: make(map[opClass]struct{}),
	}, nil
}

// DeviceID returns the device this coordinator belongs to.
func (c *Coordinator) DeviceID() string { return c.deviceID }

// Session returns the identity currently bound to the device.
func (c *Coordinator) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetSession binds s (nil on sign-out) as the identity the device view shows
// and refetches the lists when the owning user changed. Signing out clears
// the library immediately. Writes never read this binding; each one takes the
// caller's session.
func (c *Coordinator) SetSession(ctx context.Context, s *domain.Session) error {
	c.mu.Lock()
	prev := c.session.UserID()
	c.session = s
	if s == nil {
		c.library = nil
	}
	changed := prev != s.UserID()
	c.mu.Unlock()

	if !changed {
		return nil
	}
	return c.Refresh(ctx)
}

// ExtractStyle loads img as the source and replaces the draft's prompt and
// attributes with the extracted style. Every attribute starts selected.
func (c *Coordinator) ExtractStyle(ctx context.Context, img *domain.Image) (domain.Extraction, error) {
	if img.IsZero() {
		return domain.Extraction{}, fmt.Errorf("%w: source image is required", domain.ErrValidation)
	}

	c.mu.Lock()
	if err := c.beginLocked(classExtract); err != nil {
		c.mu.Unlock()
		return domain.Extraction{}, err
	}
	c.d.source = img
	c.d.sourceURL = ""
	c.d.sourceGen++
	gen := c.d.sourceGen
	c.mu.Unlock()
	defer c.end(classExtract)

	ext := c.deps.Style.ExtractStyle(ctx, img)
	if ext.IsFallback() {
		c.logger.Warn().Err(ext.Cause).Msg("style extraction fell back")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.d.sourceGen {
		c.logger.Debug().Msg("discarding extraction for replaced source")
		return ext, nil
	}
	c.d.setStyle(ext.Prompt, ext.Attributes)
	return ext, nil
}

// SetPromptText replaces the draft prompt. The attribute selection is kept.
func (c *Coordinator) SetPromptText(text string) {
	c.mu.Lock()
	c.d.prompt = text
	c.mu.Unlock()
}

// ToggleAttribute flips attr in the selection and reports whether it is now
// selected. Only extracted attributes can be toggled.
func (c *Coordinator) ToggleAttribute(attr string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.d.extracted, attr) {
		return false, fmt.Errorf("%w: unknown attribute %q", domain.ErrValidation, attr)
	}
	return c.d.toggle(attr), nil
}

// SetResolution picks the synthesis tier used when none is given.
func (c *Coordinator) SetResolution(res domain.Resolution) {
	c.mu.Lock()
	c.d.resolution = res
	c.mu.Unlock()
}

// SetAdjustments stores the display transforms of the current target.
func (c *Coordinator) SetAdjustments(a Adjustments) error {
	if err := c.validate.Validate(a); err != nil {
		return err
	}
	c.mu.Lock()
	c.d.adjustments = a
	c.mu.Unlock()
	return nil
}

// LoadTarget anchors img as the identity photo. The previous result and the
// transcript are dropped; in-flight renders of the old target are discarded.
func (c *Coordinator) LoadTarget(ctx context.Context, img *domain.Image) error {
	if img.IsZero() {
		return fmt.Errorf("%w: target image is required", domain.ErrValidation)
	}
	msgs := messagesFrom(ctx)
	c.mu.Lock()
	c.d.loadTarget(img, msgs.Greeting)
	c.mu.Unlock()
	return nil
}

// Synthesize renders a new square image from prompt. Empty arguments fall
// back to the draft's prompt and resolution. A response without an image
// leaves the draft untouched and returns nil.
func (c *Coordinator) Synthesize(ctx context.Context, prompt string, res domain.Resolution) (*domain.Image, error) {
	c.mu.Lock()
	if strings.TrimSpace(prompt) == "" {
		prompt = c.d.prompt
	}
	if res == "" {
		res = c.d.resolution
	}
	if strings.TrimSpace(prompt) == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	if err := c.beginLocked(classRender); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	gen := c.d.targetGen
	c.mu.Unlock()
	defer c.end(classRender)

	img, err := c.deps.Style.Synthesize(ctx, prompt, res)
	if err != nil {
		return nil, err
	}
	return c.storeResult(gen, img), nil
}

// ApplyStyle restyles the target with the draft prompt, focusing on the
// selected attributes.
func (c *Coordinator) ApplyStyle(ctx context.Context) (*domain.Image, error) {
	c.mu.Lock()
	target, prompt := c.d.target, strings.TrimSpace(c.d.prompt)
	focus := slices.Clone(c.d.selected)
	if target == nil || prompt == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: target image and prompt are required", domain.ErrValidation)
	}
	if err := c.beginLocked(classRender); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	gen := c.d.targetGen
	c.mu.Unlock()
	defer c.end(classRender)

	img, err := c.deps.Style.ApplyStyle(ctx, target, prompt, focus)
	if err != nil {
		return nil, err
	}
	return c.storeResult(gen, img), nil
}

func (c *Coordinator) storeResult(gen uint64, img *domain.Image) *domain.Image {
	if img == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.d.targetGen {
		c.logger.Debug().Msg("discarding render for replaced target")
		return nil
	}
	c.d.result = img
	return img
}

// Refinement is the outcome of one chat turn. AI failures are recorded in
// the transcript and reported here rather than as an error.
type Refinement struct {
	Image  *domain.Image
	Failed bool
	Cause  error
}

// ChatRefine edits the latest result (or the target) with a free-form
// instruction. The transcript gets the user turn and one model turn.
func (c *Coordinator) ChatRefine(ctx context.Context, instruction string) (Refinement, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return Refinement{}, fmt.Errorf("%w: instruction is required", domain.ErrValidation)
	}
	msgs := messagesFrom(ctx)

	c.mu.Lock()
	base := c.d.renderBase()
	if base == nil {
		c.mu.Unlock()
		return Refinement{}, fmt.Errorf("%w: load a target image first", domain.ErrValidation)
	}
	if err := c.beginLocked(classRender); err != nil {
		c.mu.Unlock()
		return Refinement{}, err
	}
	c.d.say(Message{Role: RoleUser, Text: instruction})
	gen := c.d.targetGen
	c.mu.Unlock()
	defer c.end(classRender)

	img, err := c.deps.Style.Edit(ctx, base, instruction)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.d.targetGen {
		c.logger.Debug().Msg("discarding chat turn for replaced target")
		return Refinement{}, nil
	}
	switch {
	case err != nil:
		c.d.say(Message{Role: RoleModel, Text: msgs.Failed})
		c.logger.Warn().Err(err).Msg("chat refinement failed")
		return Refinement{Failed: true, Cause: err}, nil
	case img == nil:
		c.d.say(Message{Role: RoleModel, Text: msgs.NoImage})
		return Refinement{}, nil
	default:
		c.d.result = img
		c.d.say(Message{Role: RoleModel, Text: msgs.Complete})
		return Refinement{Image: img}, nil
	}
}

// Publish saves the draft under title as sess's prompt, privately or to the
// community, and then refetches both lists. It returns the new prompt id.
func (c *Coordinator) Publish(ctx context.Context, sess *domain.Session, title string, public bool) (string, error) {
	if sess == nil {
		return "", domain.ErrAuthRequired
	}
	title = strings.TrimSpace(title)

	c.mu.Lock()
	if title == "" {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	text := strings.TrimSpace(c.d.prompt)
	if text == "" {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	if err := c.beginLocked(classPublish); err != nil {
		c.mu.Unlock()
		return "", err
	}
	img, imageURL := c.d.publishImage()
	attrs := c.d.publishAttributes()
	c.mu.Unlock()
	defer c.end(classPublish)

	if imageURL == "" && img != nil {
		imageURL = c.imageURL(ctx, img)
	}
	np := domain.NewPrompt{
		UserID:         sess.User.ID,
		Name:           title,
		Text:           text,
		SourceImageURL: imageURL,
		Attributes:     attrs,
		Visibility:     domain.VisibilityPrivate,
		Author:         domain.LibraryAuthor,
	}
	if public {
		np.Visibility = domain.VisibilityPublic
		np.Author = domain.AuthorName(sess.User)
	}

	id, err := c.deps.Prompts.Insert(ctx, np)
	if err != nil {
		return "", remoteErr(err)
	}
	c.logger.Info().Str("prompt_id", id).Str("visibility", string(np.Visibility)).Msg("prompt published")
	c.refreshAfterMutation(ctx)
	return id, nil
}

func (c *Coordinator) imageURL(ctx context.Context, img *domain.Image) string {
	if c.deps.Images != nil {
		url, err := c.deps.Images.SaveImage(ctx, img)
		if err == nil {
			return url
		}
		c.logger.Warn().Err(err).Msg("image store failed, storing inline")
	}
	return img.DataURL()
}

// Refresh refetches the community feed and, when signed in, the library.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	userID := c.session.UserID()
	c.mu.Unlock()

	var community, library []domain.Prompt
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		community, err = c.deps.Prompts.ListCommunity(gctx)
		return err
	})
	if userID != "" {
		g.Go(func() error {
			var err error
			library, err = c.deps.Prompts.ListLibrary(gctx, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return remoteErr(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.community = community
	if c.session.UserID() == userID {
		c.library = library
	}
	return nil
}

// Library fetches sess's own prompts. The device's cached library is only
// replaced when sess is the identity bound to the device.
func (c *Coordinator) Library(ctx context.Context, sess *domain.Session) ([]domain.Prompt, error) {
	if sess == nil {
		return nil, domain.ErrAuthRequired
	}
	library, err := c.deps.Prompts.ListLibrary(ctx, sess.User.ID)
	if err != nil {
		return nil, remoteErr(err)
	}
	if library == nil {
		library = []domain.Prompt{}
	}
	c.mu.Lock()
	if c.session.UserID() == sess.User.ID {
		c.library = library
	}
	c.mu.Unlock()
	return slices.Clone(library), nil
}

func (c *Coordinator) refreshCommunity(ctx context.Context) error {
	community, err := c.deps.Prompts.ListCommunity(ctx)
	if err != nil {
		return remoteErr(err)
	}
	c.mu.Lock()
	c.community = community
	c.mu.Unlock()
	return nil
}

// refreshAfterMutation follows a successful write. The write stands even
// when the refetch fails.
func (c *Coordinator) refreshAfterMutation(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("refresh after mutation failed")
	}
}

// LikeResult is the settled state of one like toggle.
type LikeResult struct {
	PromptID string `json:"prompt_id"`
	Liked    bool   `json:"liked"`
	Likes    int    `json:"likes"`
	Reverted bool   `json:"reverted"`
	Cause    error  `json:"-"`
}

// ToggleLike flips the device's like on a community prompt. The local state
// changes first; a remote failure reverts it and resyncs the feed, which is
// reported through LikeResult.Reverted rather than an error.
func (c *Coordinator) ToggleLike(ctx context.Context, sess *domain.Session, promptID string) (LikeResult, error) {
	if sess == nil {
		return LikeResult{}, domain.ErrAuthRequired
	}
	c.mu.Lock()
	if c.communityIndexLocked(promptID) < 0 {
		c.mu.Unlock()
		return LikeResult{}, fmt.Errorf("%w: prompt %s is not in the community feed", domain.ErrNotFound, promptID)
	}
	c.mu.Unlock()

	var delta int
	out, err := optimistic.Run(ctx, optimistic.Action{
		Apply: func() error {
			c.mu.Lock()
			defer c.mu.Unlock()
			delta = 1
			if _, liked := c.liked[promptID]; liked {
				delta = -1
			}
			c.flipLocked(promptID, delta)
			if err := c.persistLikedLocked(); err != nil {
				c.flipLocked(promptID, -delta)
				return err
			}
			return nil
		},
		Confirm: func(ctx context.Context) error {
			likes, err := c.deps.Prompts.AdjustLikes(ctx, promptID, delta)
			if err != nil {
				return remoteErr(err)
			}
			c.mu.Lock()
			if i := c.communityIndexLocked(promptID); i >= 0 {
				c.community[i].Likes = likes
			}
			c.mu.Unlock()
			return nil
		},
		Revert: func() error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.flipLocked(promptID, -delta)
			return c.persistLikedLocked()
		},
		Resync: c.refreshCommunity,
	})
	if err != nil {
		return LikeResult{}, err
	}
	if out.Reverted {
		c.logger.Warn().Err(out.Cause).AnErr("resync_error", out.ResyncErr).
			Str("prompt_id", promptID).Msg("like reverted")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	res := LikeResult{PromptID: promptID, Reverted: out.Reverted, Cause: out.Cause}
	_, res.Liked = c.liked[promptID]
	if i := c.communityIndexLocked(promptID); i >= 0 {
		res.Likes = c.community[i].Likes
	}
	return res, nil
}

// flipLocked adds (delta > 0) or removes the like and moves the displayed
// count by delta, never below zero.
func (c *Coordinator) flipLocked(promptID string, delta int) {
	if delta > 0 {
		c.liked[promptID] = struct{}{}
	} else {
		delete(c.liked, promptID)
	}
	if i := c.communityIndexLocked(promptID); i >= 0 {
		c.community[i].Likes = domain.ClampLikes(c.community[i].Likes + delta)
	}
}

func (c *Coordinator) persistLikedLocked() error {
	ids := make([]string, 0, len(c.liked))
	for id := range c.liked {
		ids = append(ids, id)
	}
	if err := c.deps.Likes.SaveLikedSet(c.deviceID, ids); err != nil {
		return fmt.Errorf("persist liked set: %w", err)
	}
	return nil
}

func (c *Coordinator) communityIndexLocked(promptID string) int {
	return slices.IndexFunc(c.community, func(p domain.Prompt) bool { return p.ID == promptID })
}

// Delete removes an owned prompt. confirmed must carry the user's explicit
// confirmation.
func (c *Coordinator) Delete(ctx context.Context, sess *domain.Session, promptID string, confirmed bool) error {
	userID, err := c.beginLibrary(sess, promptID)
	if err != nil {
		return err
	}
	defer c.end(classLibrary)
	if !confirmed {
		return domain.ErrConfirmationRequired
	}

	if err := c.deps.Prompts.Delete(ctx, promptID, userID); err != nil {
		return remoteErr(err)
	}
	c.logger.Info().Str("prompt_id", promptID).Msg("prompt deleted")
	c.refreshAfterMutation(ctx)
	return nil
}

// Rename sets a new name on an owned prompt. A name equal to the current one
// is dropped without a remote call; changed reports whether a write happened.
func (c *Coordinator) Rename(ctx context.Context, sess *domain.Session, promptID, name string) (changed bool, err error) {
	if sess == nil {
		return false, domain.ErrAuthRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	c.mu.Lock()
	current, known := c.ownedNameLocked(sess.UserID(), promptID)
	c.mu.Unlock()
	if known && current == name {
		return false, nil
	}
	if err := c.UpdatePrompt(ctx, sess, promptID, domain.PromptPatch{Name: &name}); err != nil {
		return false, err
	}
	return true, nil
}

// UpdatePrompt applies an owner-scoped partial update.
func (c *Coordinator) UpdatePrompt(ctx context.Context, sess *domain.Session, promptID string, patch domain.PromptPatch) error {
	if sess == nil {
		return domain.ErrAuthRequired
	}
	if patch.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return fmt.Errorf("%w: name must not be blank", domain.ErrValidation)
	}
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return fmt.Errorf("%w: text must not be blank", domain.ErrValidation)
	}
	if len(patch.Attributes) > domain.MaxAttributes {
		return fmt.Errorf("%w: at most %d attributes", domain.ErrValidation, domain.MaxAttributes)
	}

	userID, err := c.beginLibrary(sess, promptID)
	if err != nil {
		return err
	}
	defer c.end(classLibrary)

	if err := c.deps.Prompts.Update(ctx, promptID, userID, patch); err != nil {
		return remoteErr(err)
	}
	c.refreshAfterMutation(ctx)
	return nil
}

// beginLibrary checks the caller's session and marks the library class in
// flight. It returns the user id the write is scoped to.
func (c *Coordinator) beginLibrary(sess *domain.Session, promptID string) (string, error) {
	if sess == nil {
		return "", domain.ErrAuthRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(promptID) == "" {
		return "", fmt.Errorf("%w: prompt id is required", domain.ErrValidation)
	}
	if err := c.beginLocked(classLibrary); err != nil {
		return "", err
	}
	return sess.User.ID, nil
}

func (c *Coordinator) ownedNameLocked(userID, promptID string) (string, bool) {
	for _, list := range [][]domain.Prompt{c.library, c.community} {
		for _, p := range list {
			if p.ID == promptID && p.OwnedBy(userID) {
				return p.Name, true
			}
		}
	}
	return "", false
}

// Adopt loads a listed prompt into the draft with all attributes selected.
func (c *Coordinator) Adopt(promptID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, list := range [][]domain.Prompt{c.community, c.library} {
		for _, p := range list {
			if p.ID != promptID {
				continue
			}
			c.d.setStyle(p.Text, p.Attributes)
			c.d.source, c.d.sourceURL = nil, p.SourceImageURL
			if strings.HasPrefix(p.SourceImageURL, "data:") {
				if img, err := domain.ParseDataURL(p.SourceImageURL); err == nil {
					c.d.source, c.d.sourceURL = img, ""
				}
			}
			c.d.sourceGen++
			return nil
		}
	}
	return fmt.Errorf("%w: prompt %s", domain.ErrNotFound, promptID)
}

// Download returns the latest result, or the target when nothing has been
// rendered, under a timestamped file name.
func (c *Coordinator) Download() (string, *domain.Image, error) {
	c.mu.Lock()
	img := c.d.renderBase()
	c.mu.Unlock()
	if img == nil {
		return "", nil, fmt.Errorf("%w: no image to download", domain.ErrValidation)
	}
	return fmt.Sprintf("PromptArchitect-%d%s", c.deps.Now().UnixMilli(), imageExtension(img.MimeType)), img, nil
}

// remoteErr tags persistence failures that are not already classified.
func remoteErr(err error) error {
	for _, known := range []error{
		domain.ErrPermissionDenied,
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrAuthRequired,
		domain.ErrRemote,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrRemote, err)
}
