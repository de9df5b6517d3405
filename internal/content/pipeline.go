package content

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/google/uuid"
)

var (
	inlineImagePattern = regexp.MustCompile(`<img src="data:image/(png|jpeg|jpg);base64,([^"]+)"`)
	cidImagePattern    = regexp.MustCompile(`<img src="(cid:[^"]+)"([^>]*)>`)
	imageSrcPattern    = regexp.MustCompile(`<img src="([^"]+)"`)
)

// Image is an extracted inline image: the generated artifact name, the
// decoded bytes, and the content-reference token used in outbound messages.
type Image struct {
	Name string
	Data []byte
	CID  string
}

// Result holds the rewritten renditions of one piece of HTML content.
//
// WithoutCID references artifacts by public URL and is what gets persisted
// with the template, so the stored HTML stays renderable as a normal page.
// WithCID references artifacts by cid: token for multipart sending.
// WithCIDLinks additionally wraps each cid: image in an anchor to the
// configured landing page.
type Result struct {
	WithoutCID   string
	WithCID      string
	WithCIDLinks string
	Images       []Image
}

// Pipeline extracts inline base64 images out of HTML content, persists them
// as artifacts, and rewrites the content for storage and for sending.
type Pipeline struct {
	store      *Store
	siteURL    string
	urlPrefix  string
	landingURL string
	log        *logger.Logger
}

// NewPipeline creates a Pipeline writing through the given store
func NewPipeline(store *Store, cfg config.MediaConfig, log *logger.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		siteURL:    strings.TrimRight(cfg.SiteURL, "/"),
		urlPrefix:  "/" + strings.Trim(cfg.URLPrefix, "/"),
		landingURL: cfg.LandingURL,
		log:        log.WithComponent("content"),
	}
}

// PublicURL returns the fully-qualified URL a named artifact is served from
func (p *Pipeline) PublicURL(name string) string {
	return fmt.Sprintf("%s%s/%s/%s", p.siteURL, p.urlPrefix, artifactDir, name)
}

// Extract finds every inline base64 PNG/JPEG/JPG image in the content,
// persists each as an artifact, and returns the rewritten renditions.
// Content without inline images comes back unchanged with an empty image
// list, which makes Extract idempotent over already-rewritten content.
func (p *Pipeline) Extract(htmlContent string) (*Result, error) {
	res := &Result{
		WithoutCID:   htmlContent,
		WithCID:      htmlContent,
		WithCIDLinks: htmlContent,
	}

	matches := inlineImagePattern.FindAllStringSubmatch(htmlContent, -1)
	if len(matches) == 0 {
		return res, nil
	}

	seen := make(map[string]bool)
	for _, m := range matches {
		format, encoded := m[1], m[2]
		dataURI := fmt.Sprintf("data:image/%s;base64,%s", format, encoded)
		if seen[dataURI] {
			continue
		}
		seen[dataURI] = true

		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}

		name := fmt.Sprintf("%s.%s", uuid.New().String(), format)
		if err := p.store.Write(name, data); err != nil {
			return nil, err
		}

		res.WithoutCID = strings.ReplaceAll(res.WithoutCID, dataURI, p.PublicURL(name))
		res.WithCID = strings.ReplaceAll(res.WithCID, dataURI, "cid:"+name)
		res.Images = append(res.Images, Image{Name: name, Data: data, CID: "cid:" + name})
	}

	res.WithCIDLinks = p.addImageLinks(res.WithCID)
	return res, nil
}

// PrepareForSend produces the attachment-based rendition of stored content.
// Inline data URIs are extracted first (a no-op for content persisted
// through Extract), then public artifact URLs are swapped back to cid:
// tokens with the artifact bytes reloaded from the store. An artifact
// missing on disk keeps its public URL so the message still renders.
func (p *Pipeline) PrepareForSend(htmlContent string) (string, []Image, error) {
	res, err := p.Extract(htmlContent)
	if err != nil {
		return "", nil, err
	}

	withCID := res.WithCID
	images := res.Images
	prefix := p.PublicURL("")

	seen := make(map[string]bool)
	for _, m := range imageSrcPattern.FindAllStringSubmatch(withCID, -1) {
		src := m[1]
		if !strings.HasPrefix(src, prefix) || seen[src] {
			continue
		}
		seen[src] = true

		name := strings.TrimPrefix(src, prefix)
		data, err := p.store.Read(name)
		if err != nil {
			p.log.Warn().Err(err).Str("artifact", name).Msg("artifact unreadable, keeping public URL")
			continue
		}

		withCID = strings.ReplaceAll(withCID, src, "cid:"+name)
		images = append(images, Image{Name: name, Data: data, CID: "cid:" + name})
	}

	return p.addImageLinks(withCID), images, nil
}

// RemoveStaleImages deletes artifacts referenced by the old content that the
// new content no longer references. Deletion failures are logged and
// swallowed so a content save never aborts over cleanup.
func (p *Pipeline) RemoveStaleImages(oldContent, newContent string) {
	retained := p.artifactNames(newContent)
	for name := range p.artifactNames(oldContent) {
		if retained[name] {
			continue
		}
		if err := p.store.Remove(name); err != nil {
			p.log.Error().Err(err).Str("artifact", name).Msg("failed to delete stale artifact")
		}
	}
}

// RemoveContentImages deletes every artifact the content references.
// Used when a template is deleted outright.
func (p *Pipeline) RemoveContentImages(htmlContent string) {
	p.RemoveStaleImages(htmlContent, "")
}

// artifactNames collects the artifact names referenced via public URLs
func (p *Pipeline) artifactNames(htmlContent string) map[string]bool {
	prefix := p.PublicURL("")
	names := make(map[string]bool)
	for _, m := range imageSrcPattern.FindAllStringSubmatch(htmlContent, -1) {
		if strings.HasPrefix(m[1], prefix) {
			names[strings.TrimPrefix(m[1], prefix)] = true
		}
	}
	return names
}

// addImageLinks wraps every cid-referenced image tag in an anchor pointing
// at the landing page
func (p *Pipeline) addImageLinks(withCID string) string {
	return cidImagePattern.ReplaceAllStringFunc(withCID, func(tag string) string {
		m := cidImagePattern.FindStringSubmatch(tag)
		return fmt.Sprintf(`<a href="%s"><img src="%s"%s></a>`, p.landingURL, m[1], m[2])
	})
}
