// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package scripts

import (
	"fmt"

	"github.com/stretchr/testify/assert"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// FTPState is the command an FTPProvider expects next.
type FTPState int

const (
	FTPUser FTPState = iota
	FTPPass
	FTPSyst
	FTPPwd
	FTPType
	FTPPassive
	FTPSize
	FTPCwd
	FTPList
	FTPRetrPassive
	FTPRetr
	FTPQuit
	FTPDone
)

var ftpStateNames = map[FTPState]string{
	FTPUser:        "USER",
	FTPPass:        "PASS",
	FTPSyst:        "SYST",
	FTPPwd:         "PWD",
	FTPType:        "TYPE",
	FTPPassive:     "PASSIVE",
	FTPSize:        "SIZE",
	FTPCwd:         "CWD",
	FTPList:        "LIST",
	FTPRetrPassive: "RETR PASSIVE",
	FTPRetr:        "RETR",
	FTPQuit:        "QUIT",
	FTPDone:        "DONE",
}

func (s FTPState) String() string {
	if name, ok := ftpStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FTPState(%d)", int(s))
}

// FTPTransaction selects what the client does after logging in.
type FTPTransaction int

const (
	// FTPDirectory lists a directory: CWD, then LIST.
	FTPDirectory FTPTransaction = iota

	// FTPFile fetches a file: SIZE, then RETR.
	FTPFile
)

// Replies of the scripted server.
const (
	FTPGreeting = "220 host TestFTPd\r\n"
	FTPGoodbye  = "221 Goodbye.\r\n"
)

type ftpFault struct {
	state    FTPState
	next     FTPState
	response string
}

// FTPProvider plays an FTP server's control channel.  Every command the client
// writes is checked against the one the current state expects; a match queues
// the server's reply and moves to the next state.
type FTPProvider struct {
	*sockscript.DynamicProvider

	transaction FTPTransaction
	path        string
	dataType    string
	epsv        bool
	multiline   bool
	state       FTPState
	fault       *ftpFault
}

// NewFTPProvider creates a server for the given transaction on path.  The
// greeting is queued right away.
func NewFTPProvider(transaction FTPTransaction, path string, opts ...sockscript.Option) *FTPProvider {
	p := FTPProvider{
		DynamicProvider: sockscript.NewDynamicProvider(nil, opts...),
		transaction:     transaction,
		path:            path,
		dataType:        "I",
		epsv:            true,
	}
	p.SetWriteHandler(p.onWrite)
	p.Reset()
	return &p
}

// Reset implements sockscript.Provider.  The server starts over with its
// greeting.
func (p *FTPProvider) Reset() {
	p.DynamicProvider.Reset()
	p.state = FTPUser
	p.SimulateRead(FTPGreeting)
}

// State returns the command expected next.
func (p *FTPProvider) State() FTPState {
	return p.state
}

// SetDataType sets the argument TYPE is expected with.  The default is "I".
func (p *FTPProvider) SetDataType(t string) {
	p.dataType = t
}

// SetEPSV chooses between EPSV (the default) and PASV.
func (p *FTPProvider) SetEPSV(epsv bool) {
	p.epsv = epsv
}

// SetMultilineWelcome makes the login reply span several lines.
func (p *FTPProvider) SetMultilineWelcome(multiline bool) {
	p.multiline = multiline
}

// InjectFailure makes the server answer whatever arrives in state with
// response and continue in next.
func (p *FTPProvider) InjectFailure(state, next FTPState, response string) {
	p.fault = &ftpFault{state: state, next: next, response: response}
}

func (p *FTPProvider) onWrite(data []byte) sockscript.MockWriteResult {
	if f := p.fault; f != nil && f.state == p.state {
		p.Logger().Debug("ftp fault", logging.Op(p.state.String()))
		p.state = f.next
		p.SimulateRead(f.response)
		return accepted(data)
	}

	switch p.state {
	case FTPUser:
		return p.verify("USER anonymous\r\n", data, FTPPass, "331 Password needed\r\n")
	case FTPPass:
		welcome := "230 Welcome\r\n"
		if p.multiline {
			welcome = "230- One\r\n230- Two\r\n230 Three\r\n"
		}
		return p.verify("PASS chrome@example.com\r\n", data, FTPSyst, welcome)
	case FTPSyst:
		return p.verify("SYST\r\n", data, FTPPwd, "215 UNIX\r\n")
	case FTPPwd:
		return p.verify("PWD\r\n", data, FTPType, "257 \"/\" is your current location\r\n")
	case FTPType:
		return p.verify("TYPE "+p.dataType+"\r\n", data, FTPPassive, "200 TYPE set successfully\r\n")
	case FTPPassive:
		next := FTPCwd
		if p.transaction == FTPFile {
			next = FTPSize
		}
		return p.passive(data, next)
	case FTPSize:
		return p.verify("SIZE "+p.path+"\r\n", data, FTPRetrPassive, "213 18\r\n")
	case FTPRetrPassive:
		return p.passive(data, FTPRetr)
	case FTPRetr:
		return p.verify("RETR "+p.path+"\r\n", data, FTPQuit, "200 OK\r\n")
	case FTPCwd:
		return p.verify("CWD "+p.path+"\r\n", data, FTPList, "200 OK\r\n")
	case FTPList:
		return p.verify("LIST -l\r\n", data, FTPQuit, "200 OK\r\n")
	case FTPQuit:
		return p.verify("QUIT\r\n", data, FTPDone, FTPGoodbye)
	}

	helper(p.Reporter())
	assert.Failf(p.Reporter(), "unexpected ftp command", "%q written in state %s", data, p.state)
	return sockscript.MockWriteResult{Mode: sockscript.Async, Err: sockscript.ErrUnexpected}
}

func (p *FTPProvider) passive(data []byte, next FTPState) sockscript.MockWriteResult {
	if p.epsv {
		return p.verify("EPSV\r\n", data, next, "227 Entering Extended Passive Mode (|||31744|)\r\n")
	}
	return p.verify("PASV\r\n", data, next, "227 Entering Passive Mode 127,0,0,1,123,123\r\n")
}

func (p *FTPProvider) verify(want string, data []byte, next FTPState, reply string) sockscript.MockWriteResult {
	if want != string(data) {
		helper(p.Reporter())
		assert.Equal(p.Reporter(), want, string(data), "unexpected ftp command in state %s", p.state)
		return sockscript.MockWriteResult{Mode: sockscript.Async, Err: sockscript.ErrUnexpected}
	}

	p.Logger().Debug("ftp", logging.Op(p.state.String()))
	p.state = next
	p.SimulateRead(reply)
	return accepted(data)
}

func accepted(data []byte) sockscript.MockWriteResult {
	return sockscript.MockWriteResult{Mode: sockscript.Async, N: len(data)}
}

func helper(t sockscript.TestingT) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
}
