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

// Package httpparse implements the streaming HTTP/1.1 request-line and
// header parser as a table-driven DFA, matching the character-class and
// state tables used upstream rather than a line-oriented scanner: the
// request line and headers are consumed one byte at a time through a single
// transition table, so the parser can be driven incrementally by whatever
// chunks transport.Stream happens to have available.
package httpparse

// charClass is one of the 16 equivalence classes a byte falls into for the
// purposes of the state table. Bytes that play no special role in the
// grammar (ordinary letters other than H/T/P, punctuation without special
// meaning) are grouped together since the DFA never needs to distinguish
// them further.
type charClass byte

const (
	classInvalid charClass = iota // any non-ASCII or control byte
	classLWS                      // ' ' or '\t'
	classCR                       // '\r'
	classLF                       // '\n'
	classDigit                    // 0-9
	classH                        // 'H'
	classT                        // 'T'
	classP                        // 'P'
	classLetter                   // any letter other than H, T, P
	classSlash                    // '/'
	classQuote                    // '"'
	classBackslash                // '\\'
	classDot                      // '.'
	classColon                    // ':'
	classPunct                    // ! # $ % & ' * + - ^ _ ` | ~
	classSep                      // ( ) [ ] { } < > , ; ? = @
)

const classCount = 16

var classTable = [256]charClass{
	classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid,
	classInvalid, classLWS, classLF, classInvalid, classInvalid, classCR, classInvalid, classInvalid,
	classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid,
	classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid, classInvalid,

	//    sp      !        "        #        $        %        &        '        (        )        *        +        ,        -        .        /
	classLWS, classPunct, classQuote, classPunct, classPunct, classPunct, classPunct, classPunct,
	classSep, classSep, classPunct, classPunct, classSep, classPunct, classDot, classSlash,

	//    0       1        2        3        4        5        6        7        8        9        :        ;        <        =        >        ?
	classDigit, classDigit, classDigit, classDigit, classDigit, classDigit, classDigit, classDigit,
	classDigit, classDigit, classColon, classSep, classSep, classSep, classSep, classSep,

	//    @       A        B        C        D        E        F        G        H        I        J        K        L        M        N        O
	classSep, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter,
	classH, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter,

	//    P       Q        R        S        T        U        V        W        X        Y        Z        [        \        ]        ^        _
	classP, classLetter, classLetter, classLetter, classT, classLetter, classLetter, classLetter,
	classLetter, classLetter, classLetter, classSep, classBackslash, classSep, classPunct, classPunct,

	//    `       a        b        c        d        e        f        g        h        i        j        k        l        m        n        o
	classPunct, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter,
	classLetter, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter,

	//    p       q        r        s        t        u        v        w        x        y        z        {        |        }        ~       DEL
	classLetter, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter, classLetter,
	classLetter, classLetter, classLetter, classSep, classPunct, classSep, classPunct, classInvalid,

	// 128-255: all invalid (non-ASCII), zero value already set by the array literal above.
}

func classify(b byte) charClass { return classTable[b] }
