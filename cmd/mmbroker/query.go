package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/mmbroker/internal/querystring"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Decode or encode launch parameters",
}

var queryDecodeCmd = &cobra.Command{
	Use:   "decode <query>",
	Short: "Decode a query string to JSON",
	Long: `Decode a query string the way pickers read their launch parameters.

All-digit values become numbers, repeated keys become arrays, and segments without
'=' decode to null. No percent-decoding is performed.

Example:
  mmbroker query decode '?opener_origin=http://localhost:8000&id=7&tag=a&tag=b'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(queryJSON(querystring.Decode(args[0])))
	},
}

var queryEncodeCmd = &cobra.Command{
	Use:   "encode <key=value>...",
	Short: "Encode key=value pairs as a query string",
	Long: `Encode key=value pairs in argument order. Repeating a key emits it once per value;
an argument without '=' is emitted as a bare key.

Example:
  mmbroker query encode site=http://localhost:8000/ key=s3cret model=videomanager`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), querystring.Encode(queryFromArgs(args)))
		return nil
	},
}

func init() {
	queryCmd.AddCommand(queryDecodeCmd)
	queryCmd.AddCommand(queryEncodeCmd)
}

// queryJSON converts decoded values to plain JSON values, in key order.
func queryJSON(params *querystring.Values) orderedJSON {
	out := orderedJSON{}
	for _, key := range params.Keys() {
		v, _ := params.Get(key)
		if !v.IsSeq() {
			out = append(out, jsonField{Key: key, Value: scalarJSON(v.Scalar())})
			continue
		}
		items := make([]any, 0, v.Len())
		for _, s := range v.Items() {
			items = append(items, scalarJSON(s))
		}
		out = append(out, jsonField{Key: key, Value: items})
	}
	return out
}

func scalarJSON(s querystring.Scalar) any {
	if s.IsUndefined() {
		return nil
	}
	if n, ok := s.Int(); ok {
		return n
	}
	return s.String()
}

func queryFromArgs(args []string) *querystring.Values {
	params := querystring.New()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			params.Add(key, querystring.Undefined())
			continue
		}
		params.Add(key, querystring.Str(value))
	}
	return params
}
