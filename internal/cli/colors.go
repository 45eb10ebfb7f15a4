package cli

import "github.com/fatih/color"

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	titleColor   = color.New(color.FgMagenta, color.Bold)
)
