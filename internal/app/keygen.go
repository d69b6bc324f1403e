package app

import (
	"flag"
	"fmt"
	"io"
	"os"

	"warp/internal/network"

	"github.com/libp2p/go-libp2p/core/crypto"
)

func RunKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	nodePriv := fs.String("node-priv", "", "existing node private key (base64), optional")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return writeNodeKey(os.Stdout, *nodePriv)
}

func writeNodeKey(w io.Writer, nodePrivB64 string) error {
	var (
		priv crypto.PrivKey
		err  error
	)
	if nodePrivB64 != "" {
		priv, err = network.DecodeNodeKey(nodePrivB64)
	} else {
		priv, nodePrivB64, err = network.GenerateNodeKey()
	}
	if err != nil {
		return err
	}

	id, err := network.PeerIDFromKey(priv)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "NODE_PRIV_B64=%s\n", nodePrivB64)
	fmt.Fprintf(w, "NODE_PEER_ID=%s\n", id.String())
	return nil
}
