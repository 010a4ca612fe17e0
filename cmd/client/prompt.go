package main

import (
	"bufio"
	"fmt"
	"strings"
)

// promptText reads the text to correct from the scanner: one or more
// lines, terminated by an empty line. Returns the trimmed text.
func promptText(scanner *bufio.Scanner) string {
	fmt.Println("Enter text to correct (finish with an empty line):")
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// promptLine reads a single trimmed line after printing the label.
func promptLine(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
