// Package ui provides styled terminal output for tuya-strip commands.
//
// It renders command headers, success boxes, and failure boxes with
// troubleshooting tips using lipgloss, sized to the current terminal
// width. Commands obtain a Printer and emit components through it so
// all output formatting stays in one place:
//
//	p := ui.NewPrinter(nil)
//	p.PrintHeader("Device Status", "tuya-strip status", map[string]string{
//	    "Device": "192.168.1.40",
//	})
//	p.PrintSuccess("Plug turned on", map[string]string{"Plug": "2"})
package ui
