package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/snappdf/snappdf/internal/config"
	"github.com/snappdf/snappdf/internal/utils"
	"github.com/snappdf/snappdf/pkg/cropper"
	"github.com/snappdf/snappdf/pkg/document"
	"github.com/snappdf/snappdf/pkg/filter"
	"github.com/snappdf/snappdf/pkg/library"
	"github.com/snappdf/snappdf/pkg/processing"
)

// pageOptions are the edits applied to every page
type pageOptions struct {
	filter   filter.Filter
	autocrop bool
	crop     image.Rectangle
	rotate   float64
	flipH    bool
	flipV    bool
	aspect   cropper.AspectRatio
	debugDir string
}

func main() {
	var inputs stringList
	var out, name, filterName, cropSpec, flipSpec, aspectName string
	var configPath, login, deleteID, reopen, update, debugDir string
	var rotate float64
	var autocrop, upload, list, verbose, jsonLogs bool

	flag.Var(&inputs, "in", "input image path, directory, URL or data URI (repeatable)")
	flag.StringVar(&out, "out", "", "output PDF path (default: <output_dir>/<name>)")
	flag.StringVar(&name, "name", "", "PDF filename stored in the library (default from config)")

	flag.StringVar(&filterName, "filter", "none", "filter: "+filterNames())
	flag.BoolVar(&autocrop, "autocrop", false, "detect and crop the document on each page")
	flag.StringVar(&cropSpec, "crop", "", "crop region in native pixels: x,y,w,h (default: whole image)")
	flag.Float64Var(&rotate, "rotate", 0, "rotate pages clockwise by degrees before cropping")
	flag.StringVar(&flipSpec, "flip", "", "flip pages: h, v or hv")
	flag.StringVar(&aspectName, "aspect", "free", "largest centred crop with aspect: free|a4|letter|square")

	flag.BoolVar(&upload, "upload", false, "save the generated PDF to the library")
	flag.StringVar(&update, "update", "", "replace the library PDF with this id")
	flag.StringVar(&reopen, "reopen", "", "start from an existing PDF file or library id")
	flag.StringVar(&login, "login", "", "log in as email:password and store the token")
	flag.BoolVar(&list, "list", false, "list PDFs in the library")
	flag.StringVar(&deleteID, "delete", "", "delete the library PDF with this id")

	flag.StringVar(&configPath, "config", config.GetConfigPath(), "configuration file")
	flag.StringVar(&debugDir, "debug", "", "write detection overlays, crop surfaces and filter previews to this directory")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.BoolVar(&jsonLogs, "json", false, "log as JSON")
	flag.Parse()

	log := newLogger(verbose, jsonLogs)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	ctx := context.Background()

	switch {
	case login != "":
		err = runLogin(ctx, log, cfg, configPath, login)
	case list:
		err = runList(ctx, log, cfg)
	case deleteID != "":
		err = runDelete(ctx, log, cfg, deleteID)
	default:
		if len(inputs) == 0 && reopen == "" {
			fmt.Fprintf(os.Stderr, "usage: %s -in scan.jpg [-in more.png] [-out doc.pdf] [-filter magic-color] [-autocrop] [-crop x,y,w,h] [-upload]\n", filepath.Base(os.Args[0]))
			flag.PrintDefaults()
			os.Exit(2)
		}
		var opts pageOptions
		if opts, err = buildOptions(filterName, cropSpec, flipSpec, aspectName, rotate, autocrop, debugDir); err == nil {
			err = runBuild(ctx, log, cfg, buildRequest{
				inputs: inputs,
				reopen: reopen,
				out:    out,
				name:   name,
				upload: upload,
				update: update,
				opts:   opts,
			})
		}
	}
	if err != nil {
		log.WithError(err).Fatal("snappdf failed")
	}
}

func newLogger(verbose, jsonLogs bool) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	if jsonLogs {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(l)
}

func filterNames() string {
	var names []string
	for _, f := range filter.All() {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}

func buildOptions(filterName, cropSpec, flipSpec, aspectName string, rotate float64, autocrop bool, debugDir string) (pageOptions, error) {
	f, err := filter.Parse(filterName)
	if err != nil {
		return pageOptions{}, err
	}
	crop, err := parseCrop(cropSpec)
	if err != nil {
		return pageOptions{}, err
	}
	flipH, flipV, err := parseFlip(flipSpec)
	if err != nil {
		return pageOptions{}, err
	}
	aspect, err := cropper.ParseAspect(aspectName)
	if err != nil {
		return pageOptions{}, err
	}
	return pageOptions{
		filter:   f,
		autocrop: autocrop,
		crop:     crop,
		rotate:   rotate,
		flipH:    flipH,
		flipV:    flipV,
		aspect:   aspect,
		debugDir: debugDir,
	}, nil
}

func newLibrary(cfg *config.Config, log *logrus.Entry) (*library.Client, error) {
	lc := cfg.LibraryClientConfig()
	lc.Logger = log
	return library.NewClient(lc)
}

func runLogin(ctx context.Context, log *logrus.Entry, cfg *config.Config, configPath, credentials string) error {
	email, password, err := parseLogin(credentials)
	if err != nil {
		return err
	}
	client, err := newLibrary(cfg, log)
	if err != nil {
		return err
	}
	token, user, err := client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	cfg.Library.Token = token
	if err := cfg.SaveToFile(configPath); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"user": user.Username, "config": configPath}).Info("logged in, token saved")
	return nil
}

func runList(ctx context.Context, log *logrus.Entry, cfg *config.Config) error {
	client, err := newLibrary(cfg, log)
	if err != nil {
		return err
	}
	records, err := client.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Printf("%s  %-32s  %3d pages  %10s  %s\n",
			r.ID, r.Filename, r.PageCount, utils.FormatFileSize(int64(r.FileSize)),
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	log.WithField("pdfs", len(records)).Debug("listed library")
	return nil
}

func runDelete(ctx context.Context, log *logrus.Entry, cfg *config.Config, id string) error {
	client, err := newLibrary(cfg, log)
	if err != nil {
		return err
	}
	return client.Delete(ctx, id)
}

type buildRequest struct {
	inputs stringList
	reopen string
	out    string
	name   string
	upload bool
	update string
	opts   pageOptions
}

func runBuild(ctx context.Context, log *logrus.Entry, cfg *config.Config, req buildRequest) error {
	docCfg := cfg.DocumentConfig()
	docCfg.Logger = log
	session := document.NewSession(docCfg)
	defer session.Close()

	var client *library.Client
	if req.upload || req.update != "" || (req.reopen != "" && !utils.FileExists(req.reopen)) {
		var err error
		if client, err = newLibrary(cfg, log); err != nil {
			return err
		}
	}

	if req.reopen != "" {
		if err := reopenPDF(ctx, session, client, req.reopen); err != nil {
			return err
		}
	}

	first := session.Len()
	sources, err := utils.ExpandInputs(req.inputs)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := session.AddSource(ctx, src); err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
	}
	// edits apply to newly added pages only
	for i := first; i < session.Len(); i++ {
		if err := editPage(session, i, req.opts, docCfg.Processing, log); err != nil {
			return err
		}
	}
	if first == session.Len() && req.opts.filter != filter.None {
		if err := session.SetFilterAll(req.opts.filter); err != nil {
			return err
		}
	}

	name := req.name
	if name == "" && req.out != "" {
		name = filepath.Base(req.out)
	}
	if name == "" {
		name = cfg.Output.DefaultFilename
	}

	var exp *document.Export
	switch {
	case req.update != "":
		exp, err = session.ExportAndUpdate(ctx, req.update, name, client)
	case req.upload:
		exp, err = session.ExportAndSave(ctx, name, client)
	default:
		exp, err = session.Export(ctx, name)
	}
	if err != nil {
		return err
	}

	path := req.out
	if path == "" {
		path = utils.OutputPath(cfg.Output.OutputDir, exp.Filename)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, exp.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fields := logrus.Fields{
		"file":  path,
		"pages": exp.PageCount,
		"bytes": len(exp.PDF),
	}
	if exp.Record != nil {
		fields["id"] = exp.Record.ID
	}
	log.WithFields(fields).Info("pdf written")
	return nil
}

func reopenPDF(ctx context.Context, session *document.Session, client *library.Client, ref string) error {
	var data []byte
	var err error
	if utils.FileExists(ref) {
		data, err = os.ReadFile(ref)
	} else {
		var rec *library.Record
		if rec, err = client.Get(ctx, ref); err == nil {
			data, err = client.Download(ctx, rec)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", ref, err)
	}
	_, err = session.Reopen(data)
	return err
}

// editPage applies detection, the crop transform, the aspect preset and the
// filter choice to page i
func editPage(session *document.Session, i int, opts pageOptions, pcfg processing.Config, log *logrus.Entry) error {
	plog := log.WithField("page", i+1)
	var detected image.Rectangle

	if opts.autocrop {
		before, err := session.Image(i)
		if err != nil {
			return err
		}
		det, err := session.AutoCrop(i)
		if err != nil {
			return err
		}
		if det.Detected {
			detected = det.Region
		} else {
			plog.Info("no document boundary found, keeping the full image")
		}
		if opts.debugDir != "" {
			writeDebug(pcfg, opts.debugDir, fmt.Sprintf("%03d_detect.png", i+1), before, det.Region, image.Rectangle{}, plog)
		}
	}

	if !opts.crop.Empty() || opts.rotate != 0 || opts.flipH || opts.flipV {
		if err := session.Crop(i, opts.crop, opts.rotate, opts.flipH, opts.flipV); err != nil {
			return err
		}
	}

	if opts.aspect.Locked() {
		p := session.Pages()[i]
		surface, err := session.Edit(i, float64(p.Width), float64(p.Height))
		if err != nil {
			return err
		}
		surface.SetAspect(opts.aspect)
		surface.SelectAll()
		if opts.debugDir != "" {
			path := filepath.Join(opts.debugDir, fmt.Sprintf("%03d_surface.png", i+1))
			if err := saveDebugImage(pcfg, surface.Render(), path); err != nil {
				plog.WithError(err).Warn("debug preview save failed")
			}
		}
		if err := session.ApplyEdit(i, surface); err != nil {
			return err
		}
	}

	if err := session.SetFilter(i, opts.filter); err != nil {
		return err
	}
	if opts.debugDir != "" {
		preview, err := session.Preview(i, previewSize)
		if err == nil {
			err = saveDebugImage(pcfg, preview, filepath.Join(opts.debugDir, fmt.Sprintf("%03d_preview.png", i+1)))
		}
		if err != nil {
			plog.WithError(err).Warn("filter preview save failed")
		}
	}
	plog.WithFields(logrus.Fields{
		"filter":   opts.filter,
		"detected": !detected.Empty(),
	}).Debug("page prepared")
	return nil
}

// previewSize is the longest side of the per-page filter previews
const previewSize = 320

func writeDebug(pcfg processing.Config, dir, name string, img image.Image, detected, crop image.Rectangle, log *logrus.Entry) {
	p := processing.NewProcessorWithConfig(pcfg)
	overlay := p.CreateDebugOverlay(img, detected, crop)
	if err := saveDebugImage(pcfg, overlay, filepath.Join(dir, name)); err != nil {
		log.WithError(err).Warn("debug overlay save failed")
	}
}

func saveDebugImage(pcfg processing.Config, img image.Image, path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return processing.NewProcessorWithConfig(pcfg).SaveImage(img, path, "png", 92, false)
}
