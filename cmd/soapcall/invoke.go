package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	soap "github.com/m29h/soapconnector"
	"github.com/m29h/soapconnector/internal/loader"
)

var (
	indent int
	output string
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <parameters.yaml>",
	Short: "Call the endpoint and print the response document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoke,
}

var validateCmd = &cobra.Command{
	Use:   "validate <parameters.yaml>",
	Short: "Check a parameter file without calling the endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	invokeCmd.Flags().IntVar(&indent, "indent", 0, "pretty-print the response with this many spaces (0 = as received)")
	invokeCmd.Flags().StringVar(&output, "output", soap.OutputSourceResponse, "output to print: sourceResponse, responseDocumentEnvelope or responseDocumentBody")
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(validateCmd)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	input, err := loader.LoadParameters(args[0])
	if err != nil {
		return err
	}

	conn := soap.NewWebServiceConnector(client)
	conn.SetInputParameters(input)
	if err := conn.ValidateInputParameters(); err != nil {
		return err
	}
	outputs, err := conn.Execute(cmd.Context())
	if err != nil {
		return err
	}

	doc, ok := outputs[output].(*soap.Document)
	if !ok {
		return fmt.Errorf("output %q was not produced; check the buildResponseDocument flags", output)
	}
	return writeDocument(cmd.OutOrStdout(), doc, indent)
}

func runValidate(cmd *cobra.Command, args []string) error {
	input, err := loader.LoadParameters(args[0])
	if err != nil {
		return err
	}

	conn := soap.NewWebServiceConnector(client)
	conn.SetInputParameters(input)
	if err := conn.ValidateInputParameters(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: parameters are valid\n", args[0])
	return err
}

func writeDocument(w io.Writer, doc *soap.Document, spaces int) error {
	if spaces <= 0 {
		_, err := io.Copy(w, doc.Reader())
		if err == nil {
			_, err = fmt.Fprintln(w)
		}
		return err
	}
	tree, err := doc.Tree()
	if err != nil {
		return err
	}
	tree.Indent(spaces)
	_, err = tree.WriteTo(w)
	return err
}
