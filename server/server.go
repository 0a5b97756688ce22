package server

import (
	"fmt"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/ramfs"
	"github.com/brettbedarf/ramfs/config"
	"github.com/brettbedarf/ramfs/internal/util"
)

// Server is the main public API for mounting a RamFs instance. It wraps the
// tree with the FUSE bridge and manages the kernel mount lifecycle.
type Server struct {
	*ramfs.RamFs
	cfg    *config.Config
	server *fuse.Server
}

func New(fsys *ramfs.RamFs, cfg *config.Config) *Server {
	return &Server{
		RamFs: fsys,
		cfg:   cfg,
	}
}

// Serve mounts and serves the filesystem at the given mountpoint. It returns
// once the kernel reports the mount as live; serving continues in the
// background until Unmount or an external unmount.
func (s *Server) Serve(mntPoint string) error {
	logger := util.GetLogger("Server.Serve")

	rawFS := NewFuseRaw(s.RamFs, s.cfg)
	slogger := util.NewLogLogger("FuseServer", util.DebugLevel)
	srv, err := fuse.NewServer(rawFS, mntPoint, &fuse.MountOptions{
		Name:     s.cfg.Name,
		FsName:   s.cfg.FsName,
		Debug:    s.cfg.Debug || s.cfg.LogLvl == util.TraceLevel,
		MaxWrite: s.cfg.MaxWrite,
		Logger:   slogger,
	})
	if err != nil {
		return fmt.Errorf("failed to create FUSE server: %w", err)
	}
	s.server = srv

	go srv.Serve()
	if err := srv.WaitMount(); err != nil {
		return err
	}

	logger.Info().
		Str("mntPoint", mntPoint).
		Str("fsid", s.ID().String()).
		Msg("Filesystem mounted")
	return nil
}

// ServeAsync mounts and serves the filesystem in the background. The
// returned channel receives the mount result.
func (s *Server) ServeAsync(mntPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- s.Serve(mntPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem has been unmounted.
func (s *Server) Wait() {
	if s.server != nil {
		s.server.Wait()
	}
}

// Unmount detaches the kernel mount. The in-memory tree and its contents
// survive and can be mounted again.
func (s *Server) Unmount() error {
	if s.server == nil {
		return nil
	}
	return s.server.Unmount()
}
