package commands

import (
	"DocVault/internal/cli/api"
	"DocVault/internal/config"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

type keyInitCmd struct{}

func (keyInitCmd) Name() string        { return "key-init" }
func (keyInitCmd) Description() string { return "Create the tenant encryption key on the server" }
func (keyInitCmd) Usage() string       { return "key-init" }

func (keyInitCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	var reply struct {
		TenantCode string `json:"tenant_code"`
		Created    bool   `json:"created"`
	}
	code, err := c.PostJSON(ctx, "/api/keys", nil, &reply)
	if err != nil {
		return err
	}
	if code == http.StatusCreated {
		fmt.Fprintf(Out, "Key created for tenant %s\n", reply.TenantCode)
		return nil
	}
	fmt.Fprintf(Out, "Key already exists for tenant %s\n", reply.TenantCode)
	return nil
}

type uploadCmd struct{}

func (uploadCmd) Name() string        { return "upload" }
func (uploadCmd) Description() string { return "Upload a file, print its file_ref" }
func (uploadCmd) Usage() string       { return "upload <path> [media-type]" }

func (uploadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	path := args[0]
	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if len(args) == 2 {
		mediaType = args[1]
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reply, err := c.Upload(ctx, f, mediaType)
	var se *api.StatusError
	if errors.As(err, &se) && se.Code == http.StatusMultiStatus && reply != nil {
		_ = printJSON(reply)
		return fmt.Errorf("file %s stored partially: %d of %d parts", reply.FileRef, reply.PersistedParts, reply.BlockCount)
	}
	if err != nil {
		return err
	}
	return printJSON(reply)
}

type downloadCmd struct{}

func (downloadCmd) Name() string        { return "download" }
func (downloadCmd) Description() string { return "Download a file by file_ref" }
func (downloadCmd) Usage() string       { return "download <file_ref> <path>" }

// Run пишет во временный файл рядом с целевым и переименовывает его только после
// успешного получения; при ошибке целевой файл не создаётся.
func (downloadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	ref, dst := args[0], args[1]
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".dvcli-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	mediaType, err := c.Download(ctx, ref, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Saved %s (%s)\n", dst, mediaType)
	return nil
}

type infoCmd struct{}

func (infoCmd) Name() string        { return "info" }
func (infoCmd) Description() string { return "Show per-part status of a file" }
func (infoCmd) Usage() string       { return "info <file_ref>" }

func (infoCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	return getAndPrint(ctx, cfg, args, "/info")
}

type statsCmd struct{}

func (statsCmd) Name() string        { return "stats" }
func (statsCmd) Description() string { return "Show summary counts of a file" }
func (statsCmd) Usage() string       { return "stats <file_ref>" }

func (statsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	return getAndPrint(ctx, cfg, args, "/stats")
}

func getAndPrint(ctx context.Context, cfg *config.Config, args []string, suffix string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	var out map[string]any
	if err := c.GetJSON(ctx, "/api/files/"+url.PathEscape(args[0])+suffix, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func init() {
	RegisterCmd(keyInitCmd{})
	RegisterCmd(uploadCmd{})
	RegisterCmd(downloadCmd{})
	RegisterCmd(infoCmd{})
	RegisterCmd(statsCmd{})
}
