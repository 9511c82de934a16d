package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"DocVault/internal/crypto"
	"DocVault/internal/extract"
	"DocVault/internal/keys"
	"DocVault/internal/model"
	"DocVault/internal/pipeline"
	"DocVault/internal/repo"
	"DocVault/internal/spool"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Session — проверенная сессия вызывающего тенанта.
type Session struct {
	TenantCode string
	SessionID  string
	// Token передаётся сервису индексации как есть.
	Token string
}

// KeyManager — ключи тенантов: выдача для пайплайна и первичное создание.
type KeyManager interface {
	keys.Fetcher
	Provision(ctx context.Context, tenantCode string) (bool, error)
}

// Options — размеры блоков и параллелизм расшифровки.
type Options struct {
	BlockSize      int
	BatchSize      int
	DecryptWorkers int
}

// Deps — зависимости FileService.
type Deps struct {
	Files     repo.FileRepository
	Keys      KeyManager
	Pool      *pipeline.Pool
	Spooler   spool.Spooler
	Extractor extract.Extractor
	Indexer   extract.Indexer
	Logger    *zap.SugaredLogger
}

// UploadResult — итог загрузки.
type UploadResult struct {
	FileRef         string `json:"file_ref"`
	Size            int64  `json:"size"`
	BlockCount      int    `json:"block_count"`
	PersistedParts  int    `json:"persisted_parts"`
	MediaType       string `json:"media_type"`
	FulltextIndexed bool   `json:"fulltext_indexed"`
	Status          string `json:"status"`
}

// FileInfo — состояние документа по частям.
type FileInfo struct {
	FileRef      string          `json:"file_ref"`
	MediaType    string          `json:"media_type"`
	Size         int64           `json:"original_file_size"`
	TotalPart    int             `json:"block_count"`
	UploadStatus string          `json:"upload_status"`
	Parts        []repo.PartInfo `json:"parts"`
}

// FileService — оркестратор загрузки и выдачи документов.
type FileService struct {
	files     repo.FileRepository
	keys      KeyManager
	pool      *pipeline.Pool
	chunker   pipeline.Chunker
	decryptor *pipeline.Decryptor
	spooler   spool.Spooler
	extractor extract.Extractor
	indexer   extract.Indexer
	logger    *zap.SugaredLogger
}

func NewFileService(d Deps, opts Options) *FileService {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Extractor == nil {
		d.Extractor = extract.SniffExtractor{}
	}
	if d.Indexer == nil {
		d.Indexer = extract.NopIndexer{}
	}
	return &FileService{
		files:     d.Files,
		keys:      d.Keys,
		pool:      d.Pool,
		chunker:   pipeline.NewChunker(opts.BlockSize, opts.BatchSize),
		decryptor: pipeline.NewDecryptor(d.Pool, pipeline.WorkerCount(opts.DecryptWorkers), d.Logger),
		spooler:   d.Spooler,
		extractor: d.Extractor,
		indexer:   d.Indexer,
		logger:    d.Logger,
	}
}

func checkSession(sess *Session) error {
	if sess == nil || sess.TenantCode == "" {
		return pipeline.ErrInvalidCredential
	}
	return nil
}

// Upload режет body на блоки, шифрует и сохраняет их, затем извлекает текст
// и финализирует ссылку. Если сохранено не всё, возвращает результат вместе
// с ошибкой, оборачивающей pipeline.ErrPartiallyStored.
func (s *FileService) Upload(ctx context.Context, sess *Session, body io.Reader, declaredType string) (*UploadResult, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	tenant := sess.TenantCode

	key, err := s.keys.Fetch(ctx, tenant)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	ref, err := s.files.CreateReference(ctx, tenant)
	if err != nil {
		s.logger.Errorw("Cannot create file reference", "tenant", tenant, "error", err)
		return nil, fmt.Errorf("%w: create reference: %v", pipeline.ErrStorage, err)
	}
	log := s.logger.With("file_ref", ref.FileRef, "tenant", tenant)

	sp, err := s.spooler.Create(ctx, ref.FileRef)
	if err != nil {
		log.Errorw("Cannot create spool", "error", err)
		s.finalize(ctx, log, ref.ID, repo.FinalizeUpdate{MimeType: "application/octet-stream", UploadStatus: model.UploadPartial})
		return nil, fmt.Errorf("%w: spool: %v", pipeline.ErrStorage, err)
	}
	defer func() {
		if err := sp.Close(); err != nil {
			log.Warnw("Cannot release spool", "error", err)
		}
	}()

	enc := pipeline.NewEncryptor(s.pool, s.files, key, ref.ID, log)
	var head []byte
	sum, readErr := s.chunker.Run(ctx, io.TeeReader(body, sp), func(b pipeline.Batch) error {
		if head == nil && len(b.Blocks) > 0 {
			head = sniffHead(b.Blocks[0].Data)
		}
		return enc.Dispatch(ctx, b)
	})
	results := enc.Wait()

	persisted := pipeline.Persisted(results)
	failed := pipeline.FailedBatches(results)
	complete := readErr == nil && failed == nil && persisted == sum.Blocks

	res := &UploadResult{
		FileRef:        ref.FileRef,
		Size:           sum.Size,
		BlockCount:     sum.Blocks,
		PersistedParts: persisted,
		Status:         model.UploadComplete,
	}

	var content extract.Content
	if complete {
		content = s.extractContent(ctx, log, sp)
	}
	res.MediaType = resolveMediaType(content.ContentType, declaredType, head)

	if complete && content.Text != "" {
		err := s.indexer.Index(ctx, extract.Document{
			FileRef: ref.FileRef,
			Tenant:  tenant,
			Text:    content.Text,
			Token:   sess.Token,
		})
		if err != nil {
			log.Warnw("Fulltext indexing failed", "error", fmt.Errorf("%w: %v", pipeline.ErrExtraction, err))
		} else {
			res.FulltextIndexed = true
		}
	}

	if !complete {
		res.Status = model.UploadPartial
	}
	upd := repo.FinalizeUpdate{
		OriginalFileSize: res.Size,
		TotalPart:        res.BlockCount,
		MimeType:         res.MediaType,
		UploadStatus:     res.Status,
		FulltextParsed:   res.FulltextIndexed,
	}
	if err := s.finalize(ctx, log, ref.ID, upd); err != nil {
		return nil, fmt.Errorf("%w: finalize reference: %v", pipeline.ErrStorage, err)
	}

	if !complete {
		cause := errors.Join(readErr, failed)
		if cause == nil {
			cause = fmt.Errorf("%d of %d parts persisted", persisted, sum.Blocks)
		}
		log.Warnw("File partially stored", "blocks", sum.Blocks, "persisted", persisted, "error", cause)
		return res, fmt.Errorf("%w: %w", pipeline.ErrPartiallyStored, cause)
	}

	log.Infow("File stored", "size", res.Size, "blocks", res.BlockCount, "media_type", res.MediaType)
	return res, nil
}

// finalize не зависит от отмены запроса: ссылка должна получить итоговый статус.
func (s *FileService) finalize(ctx context.Context, log *zap.SugaredLogger, id int64, upd repo.FinalizeUpdate) error {
	if err := s.files.FinalizeReference(context.WithoutCancel(ctx), id, upd); err != nil {
		log.Errorw("Cannot finalize file reference", "error", err)
		return err
	}
	return nil
}

func (s *FileService) extractContent(ctx context.Context, log *zap.SugaredLogger, sp spool.Spool) extract.Content {
	rc, err := sp.Reader(ctx)
	if err != nil {
		log.Warnw("Cannot reopen spool", "error", fmt.Errorf("%w: %v", pipeline.ErrExtraction, err))
		return extract.Content{}
	}
	defer rc.Close()

	c, err := s.extractor.Extract(ctx, rc)
	if err != nil {
		log.Warnw("Text extraction failed", "error", fmt.Errorf("%w: %v", pipeline.ErrExtraction, err))
		return extract.Content{}
	}
	return c
}

func sniffHead(b []byte) []byte {
	n := min(len(b), 512)
	head := make([]byte, n)
	copy(head, b[:n])
	return head
}

// resolveMediaType: тип от экстрактора, затем заявленный клиентом, затем по сигнатуре.
func resolveMediaType(extracted, declared string, head []byte) string {
	switch {
	case extracted != "":
		return extracted
	case declared != "":
		return declared
	case len(head) > 0:
		return http.DetectContentType(head)
	default:
		return "application/octet-stream"
	}
}

// Document — расшифрованный документ, готовый к выдаче.
type Document struct {
	FileRef   string
	MediaType string
	Size      int64
	total     int
	plain     map[int][]byte
}

// NewDocument собирает документ из готового содержимого.
func NewDocument(fileRef, mediaType string, data []byte) *Document {
	d := &Document{FileRef: fileRef, MediaType: mediaType, Size: int64(len(data)), plain: map[int][]byte{}}
	if len(data) > 0 {
		d.plain[0] = data
		d.total = 1
	}
	return d
}

// WriteTo пишет содержимое документа по порядку частей.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := pipeline.MergeTo(cw, d.plain, d.total)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Download загружает части и ключ параллельно, расшифровывает и проверяет полноту.
// При любом сбое содержимое не возвращается.
func (s *FileService) Download(ctx context.Context, sess *Session, fileRef string) (*Document, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	tenant := sess.TenantCode
	log := s.logger.With("file_ref", fileRef, "tenant", tenant)

	var (
		ref   *model.FileReference
		parts []model.FilePart
		key   *crypto.SecretKey
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.reference(gctx, tenant, fileRef)
		if err != nil {
			return err
		}
		p, err := s.files.ListParts(gctx, r.ID)
		if err != nil {
			return fmt.Errorf("%w: list parts: %v", pipeline.ErrStorage, err)
		}
		ref, parts = r, p
		return nil
	})
	g.Go(func() error {
		k, err := s.keys.Fetch(gctx, tenant)
		key = k
		return err
	})
	err := g.Wait()
	if key != nil {
		defer key.Wipe()
	}
	if err != nil {
		log.Warnw("Download aborted", "error", err)
		return nil, err
	}
	// отдаём только завершённые загрузки: у PARTIAL нет хвоста, у PENDING нет TotalPart
	if ref.UploadStatus != model.UploadComplete {
		log.Warnw("Download rejected", "status", ref.UploadStatus, "parts", len(parts))
		return nil, fmt.Errorf("%w: status %s", pipeline.ErrIncomplete, ref.UploadStatus)
	}

	encoded := make(map[int]string, len(parts))
	for _, p := range parts {
		if !p.IsEncrypted {
			return nil, fmt.Errorf("%w: part %d is not encrypted", pipeline.ErrCrypto, p.PartNumber)
		}
		encoded[p.PartNumber] = p.PartData
	}

	plain, results := s.decryptor.DecryptAll(ctx, key, encoded)
	rangeErr := pipeline.FailedRanges(results)

	size, err := pipeline.Complete(plain, ref.TotalPart)
	if err != nil {
		log.Errorw("Cannot assemble file", "total", ref.TotalPart, "error", err)
		return nil, errors.Join(err, rangeErr)
	}

	return &Document{
		FileRef:   ref.FileRef,
		MediaType: ref.MimeType,
		Size:      size,
		total:     ref.TotalPart,
		plain:     plain,
	}, nil
}

func (s *FileService) reference(ctx context.Context, tenant, fileRef string) (*model.FileReference, error) {
	ref, err := s.files.GetReference(ctx, tenant, fileRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pipeline.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get reference: %v", pipeline.ErrStorage, err)
	}
	return ref, nil
}

// Info возвращает состояние документа по частям.
func (s *FileService) Info(ctx context.Context, sess *Session, fileRef string) (*FileInfo, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	ref, err := s.reference(ctx, sess.TenantCode, fileRef)
	if err != nil {
		return nil, err
	}
	parts, err := s.files.PartsInfo(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: parts info: %v", pipeline.ErrStorage, err)
	}
	if parts == nil {
		parts = []repo.PartInfo{}
	}
	return &FileInfo{
		FileRef:      ref.FileRef,
		MediaType:    ref.MimeType,
		Size:         ref.OriginalFileSize,
		TotalPart:    ref.TotalPart,
		UploadStatus: ref.UploadStatus,
		Parts:        parts,
	}, nil
}

// Stats возвращает сводку по документу.
func (s *FileService) Stats(ctx context.Context, sess *Session, fileRef string) (*repo.FileStats, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	st, err := s.files.Stats(ctx, sess.TenantCode, fileRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pipeline.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %v", pipeline.ErrStorage, err)
	}
	return st, nil
}

// ProvisionKey создаёт ключ тенанта, если его ещё нет.
func (s *FileService) ProvisionKey(ctx context.Context, sess *Session) (bool, error) {
	if err := checkSession(sess); err != nil {
		return false, err
	}
	created, err := s.keys.Provision(ctx, sess.TenantCode)
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Infow("Tenant key provisioned", "tenant", sess.TenantCode)
	}
	return created, nil
}
