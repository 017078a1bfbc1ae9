// Package shell tells the user how to put the bin directory on PATH.
//
// The user's shell is detected from $SHELL, falling back to the name of the
// parent process. For bash, zsh and fish a PathHint names the rc file and
// the line that adds the directory:
//
//	# bash, zsh (~/.bashrc, ~/.zshrc)
//	export PATH="$HOME/.local/bin:$PATH"
//
//	# fish (~/.config/fish/config.fish)
//	fish_add_path $HOME/.local/bin
//
// Nothing is written to rc files; the hint is printed for the user to apply.
package shell
