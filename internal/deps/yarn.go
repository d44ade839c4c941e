package deps

import (
	"context"
	"fmt"

	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/soyeahso/pluginctl/internal/manifest"
)

// Yarn installs frontend packages into the host web directory.
type Yarn struct {
	runner Runner
	bin    string
	dir    string
	log    *logging.Logger
}

// NewYarn creates a frontend installer running in dir.
func NewYarn(bin, dir string, runner Runner, log *logging.Logger) *Yarn {
	if bin == "" {
		bin = "yarn"
	}
	return &Yarn{runner: runner, bin: bin, dir: dir, log: log.Sub("yarn")}
}

// Install adds one package.
func (y *Yarn) Install(ctx context.Context, name, constraint string, dev bool, onLine LineFunc) error {
	return y.add(ctx, []manifest.Dependency{{Name: name, Constraint: constraint}}, dev, onLine)
}

// Uninstall removes one package.
func (y *Yarn) Uninstall(ctx context.Context, name string, onLine LineFunc) error {
	cmd := Command{Name: y.bin, Args: []string{"remove", name}, Dir: y.dir}
	out := newTail(outputTail)
	y.log.Info().Str("package", name).Msg("removing frontend package")
	if err := y.runner.Run(ctx, cmd, out.wrap(onLine)); err != nil {
		return newError(name, cmd, out, err)
	}
	return nil
}

// InstallFromManifest installs everything listed in a package.json: one
// batch for dependencies, then one for devDependencies.
func (y *Yarn) InstallFromManifest(ctx context.Context, path string, onLine LineFunc) error {
	f, err := manifest.LoadFrontend(path)
	if err != nil {
		return &Error{Kind: FailureGeneric, Package: path, Command: y.bin + " add", Err: err}
	}
	if f.Empty() {
		if onLine != nil {
			onLine("no dependencies to install")
		}
		return nil
	}
	if err := y.add(ctx, f.Dependencies, false, onLine); err != nil {
		return err
	}
	return y.add(ctx, f.DevDependencies, true, onLine)
}

func (y *Yarn) add(ctx context.Context, pkgs []manifest.Dependency, dev bool, onLine LineFunc) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := []string{"add"}
	for _, p := range pkgs {
		if p.Constraint == "" {
			args = append(args, p.Name)
		} else {
			args = append(args, p.Name+"@"+p.Constraint)
		}
	}
	if dev {
		args = append(args, "--dev")
	}
	cmd := Command{Name: y.bin, Args: args, Dir: y.dir}

	name := pkgs[0].Name
	if len(pkgs) > 1 {
		name = fmt.Sprintf("%d packages", len(pkgs))
	}
	out := newTail(outputTail)
	y.log.Info().Int("count", len(pkgs)).Bool("dev", dev).Msg("installing frontend packages")
	if err := y.runner.Run(ctx, cmd, out.wrap(onLine)); err != nil {
		return newError(name, cmd, out, err)
	}
	return nil
}
