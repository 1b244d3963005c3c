// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpparse

// state names what the parser expects next. The names keep the upstream
// mnemonics (spelled out rather than abbreviated) since they're referenced
// directly by the transition table below and by the state-entered switch in
// parse.go.
type state int8

const (
	stateMethodFirst  state = iota // first method character or '\r'
	stateMethodCRLF                // '\n' before first method character
	stateMethod                    // method character
	stateURIFirst                  // first URI character
	stateURI                       // URI character
	stateH                         // 'H' of HTTP
	stateHT                        // "HT"
	stateHTT                       // "HTT"
	stateHTTP                      // "HTTP"
	stateVersionSlash               // version '/'
	stateVersionMajor                // major version digits
	stateVersionDot                  // version '.'
	stateVersionMinor                // minor version digits
	stateFirstCR                     // '\r' before first header
	stateFirstLF                     // '\n' before first header
	stateName                        // header name
	stateNameColon                   // header name or ':'
	stateNameEnd                     // header name, whitespace or '\r'
	stateValue                       // header value, '\r' or '"'
	stateValueQuoted                 // quoted header value or closing '"'
	stateValueEscaped                // escaped quoted-value byte
	stateValueLF                     // '\n' before next header
	stateHeadersEnd                  // end of headers '\n'
)

const stateCount = 23

// stateStart is the initial state of a freshly-reset Context.
const stateStart = stateMethodFirst

// stateFin is the terminal pseudo-state: reaching it means the request line
// and all headers have been consumed. It deliberately falls outside
// [0, stateCount) so it can never collide with a real row index.
const stateFin state = 23

// invalid marks a transition the grammar forbids; the parser treats it as a
// malformed request line or header.
const invalid state = -1

// transition[s][c] is the state entered on class c while in state s, or
// invalid. Laid out one literal row per state so it can be checked against
// the upstream table column by column.
var transition = [stateCount][classCount]state{
	stateMethodFirst:  {invalid, invalid, stateMethodCRLF, invalid, invalid, stateMethod, stateMethod, stateMethod, stateMethod, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateMethodCRLF:   {invalid, invalid, invalid, stateMethodFirst, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateMethod:       {invalid, stateURIFirst, invalid, invalid, invalid, stateMethod, stateMethod, stateMethod, stateMethod, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateURIFirst:     {invalid, invalid, invalid, invalid, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI},
	stateURI:          {invalid, stateH, invalid, invalid, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI, stateURI},
	stateH:            {invalid, invalid, invalid, invalid, invalid, stateHT, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateHT:           {invalid, invalid, invalid, invalid, invalid, invalid, stateHTT, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateHTT:          {invalid, invalid, invalid, invalid, invalid, invalid, stateHTTP, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateHTTP:         {invalid, invalid, invalid, invalid, invalid, invalid, invalid, stateVersionSlash, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateVersionSlash: {invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, stateVersionMajor, invalid, invalid, invalid, invalid, invalid, invalid},
	stateVersionMajor: {invalid, invalid, invalid, invalid, stateVersionDot, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateVersionDot:   {invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, stateVersionMinor, invalid, invalid, invalid},
	stateVersionMinor: {invalid, invalid, invalid, invalid, stateFirstCR, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateFirstCR:      {invalid, invalid, stateFirstLF, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateFirstLF:      {invalid, invalid, invalid, stateName, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateName:         {invalid, invalid, invalid, invalid, stateNameColon, stateNameColon, stateNameColon, stateNameColon, stateNameColon, invalid, invalid, invalid, stateNameColon, invalid, stateNameColon, invalid},
	stateNameColon:    {invalid, invalid, invalid, invalid, stateNameColon, stateNameColon, stateNameColon, stateNameColon, stateNameColon, invalid, invalid, invalid, stateNameColon, stateValue, stateNameColon, invalid},
	stateNameEnd:      {invalid, stateValue, stateHeadersEnd, invalid, stateNameColon, stateNameColon, stateNameColon, stateNameColon, stateNameColon, invalid, invalid, invalid, stateNameColon, invalid, stateNameColon, invalid},
	stateValue:        {invalid, stateValue, stateValueLF, invalid, stateValue, stateValue, stateValue, stateValue, stateValue, stateValue, stateValueQuoted, stateValue, stateValue, stateValue, stateValue, stateValue},
	stateValueQuoted:  {invalid, stateValueQuoted, invalid, invalid, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValue, stateValueEscaped, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted},
	stateValueEscaped: {invalid, stateValueQuoted, invalid, invalid, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted, stateValueQuoted},
	stateValueLF:      {invalid, invalid, invalid, stateNameEnd, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
	stateHeadersEnd:   {invalid, invalid, invalid, stateFin, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid, invalid},
}
