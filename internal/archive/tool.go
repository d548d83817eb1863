package archive

// DefaultCommand is the archiver binary.
const DefaultCommand = "tar"

// DefaultCompressor is the compression program handed to tar.
const DefaultCompressor = "pigz"

// Tool describes the archiver command line.
type Tool struct {
	Command    string // tar binary, defaults to DefaultCommand
	Compressor string // program for tar -I, empty for none
}

func (t Tool) command() string {
	if t.Command == "" {
		return DefaultCommand
	}
	return t.Command
}

// args prefixes op with the compressor flag.
func (t Tool) args(op ...string) []string {
	if t.Compressor == "" {
		return op
	}
	return append([]string{"-I", t.Compressor}, op...)
}

// createArgs returns the arguments to archive name (relative to the
// working directory) into dest.
func (t Tool) createArgs(dest, name string) []string {
	return t.args("-cf", dest, name)
}

// extractArgs returns the arguments to extract archive into dir.
func (t Tool) extractArgs(archive, dir string) []string {
	return t.args("-xf", archive, "-C", dir)
}
