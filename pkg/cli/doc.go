/*
Package cli provides helpers shared by the lendrules commands: output
formatting, progress reporting, signal handling and exit codes.

Commands print results through a Formatter so every command supports
--output text|json:

	f, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(f).FormatTo(cmd.OutOrStdout(), result)

Values implementing Texter control their own text rendering.

Errors returned from commands map to process exit codes with ExitCode, so
scripts can tell an invalid rule from a conflicting one.
*/
package cli
