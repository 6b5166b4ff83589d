// compileinfoprint is imported for the side effect of printing the compileinfo
// of the rnadiff binaries to os.Stderr
package compileinfoprint

import "github.com/carbocation/rnadiff/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
