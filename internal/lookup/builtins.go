package lookup

import (
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/javacontext-mcp/internal/classfile"
)

// BuiltinContainer is the container name reported for JDK skeleton types.
const BuiltinContainer = "JRE_SYSTEM_LIBRARY"

// builtinClass describes one JDK type. Members are written as
// "[static] [final] [varargs] name descriptor[=constant]".
type builtinClass struct {
	name       string
	super      string
	access     uint16
	interfaces []string
	members    []string
}

const (
	pubClass     = classfile.AccPublic | classfile.AccSuper
	pubFinal     = classfile.AccPublic | classfile.AccSuper | classfile.AccFinal
	pubAbstract  = classfile.AccPublic | classfile.AccSuper | classfile.AccAbstract
	pubInterface = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract
)

var exceptionCtors = []string{"<init> ()V", "<init> (Ljava/lang/String;)V"}

var builtinClasses = []builtinClass{
	{"java/lang/Object", "", pubClass, nil, []string{
		"<init> ()V", "getClass ()Ljava/lang/Class;", "hashCode ()I",
		"equals (Ljava/lang/Object;)Z", "toString ()Ljava/lang/String;",
	}},
	{"java/lang/String", "java/lang/Object", pubFinal, []string{"java/lang/CharSequence", "java/lang/Comparable", "java/io/Serializable"}, []string{
		"<init> ()V", "<init> (Ljava/lang/String;)V", "<init> ([C)V",
		"length ()I", "charAt (I)C", "isEmpty ()Z", "substring (I)Ljava/lang/String;",
		"substring (II)Ljava/lang/String;", "indexOf (I)I", "indexOf (Ljava/lang/String;)I",
		"lastIndexOf (Ljava/lang/String;)I", "equals (Ljava/lang/Object;)Z",
		"equalsIgnoreCase (Ljava/lang/String;)Z", "compareTo (Ljava/lang/String;)I",
		"contains (Ljava/lang/CharSequence;)Z", "startsWith (Ljava/lang/String;)Z",
		"endsWith (Ljava/lang/String;)Z", "concat (Ljava/lang/String;)Ljava/lang/String;",
		"trim ()Ljava/lang/String;", "toUpperCase ()Ljava/lang/String;",
		"toLowerCase ()Ljava/lang/String;", "replace (CC)Ljava/lang/String;",
		"split (Ljava/lang/String;)[Ljava/lang/String;", "toCharArray ()[C",
		"hashCode ()I", "toString ()Ljava/lang/String;",
		"static valueOf (I)Ljava/lang/String;", "static valueOf (J)Ljava/lang/String;",
		"static valueOf (Z)Ljava/lang/String;", "static valueOf (C)Ljava/lang/String;",
		"static valueOf (D)Ljava/lang/String;", "static valueOf (F)Ljava/lang/String;",
		"static valueOf (Ljava/lang/Object;)Ljava/lang/String;",
		"static varargs format (Ljava/lang/String;[Ljava/lang/Object;)Ljava/lang/String;",
	}},
	{"java/lang/CharSequence", "java/lang/Object", pubInterface, nil, []string{
		"length ()I", "charAt (I)C", "toString ()Ljava/lang/String;",
	}},
	{"java/lang/Comparable", "java/lang/Object", pubInterface, nil, []string{"compareTo (Ljava/lang/Object;)I"}},
	{"java/lang/Runnable", "java/lang/Object", pubInterface, nil, []string{"run ()V"}},
	{"java/lang/Cloneable", "java/lang/Object", pubInterface, nil, nil},
	{"java/io/Serializable", "java/lang/Object", pubInterface, nil, nil},
	{"java/lang/AutoCloseable", "java/lang/Object", pubInterface, nil, []string{"close ()V"}},
	{"java/lang/Iterable", "java/lang/Object", pubInterface, nil, []string{"iterator ()Ljava/util/Iterator;"}},
	{"java/lang/annotation/Annotation", "java/lang/Object", pubInterface, nil, nil},
	{"java/lang/Override", "java/lang/Object", pubInterface | classfile.AccAnnotation, []string{"java/lang/annotation/Annotation"}, nil},
	{"java/lang/Deprecated", "java/lang/Object", pubInterface | classfile.AccAnnotation, []string{"java/lang/annotation/Annotation"}, nil},
	{"java/lang/FunctionalInterface", "java/lang/Object", pubInterface | classfile.AccAnnotation, []string{"java/lang/annotation/Annotation"}, nil},
	{"java/lang/SuppressWarnings", "java/lang/Object", pubInterface | classfile.AccAnnotation, []string{"java/lang/annotation/Annotation"}, []string{"value ()[Ljava/lang/String;"}},

	{"java/lang/Number", "java/lang/Object", pubAbstract, []string{"java/io/Serializable"}, []string{
		"<init> ()V", "intValue ()I", "longValue ()J", "floatValue ()F", "doubleValue ()D",
		"byteValue ()B", "shortValue ()S",
	}},
	{"java/lang/Integer", "java/lang/Number", pubFinal, []string{"java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "static final MAX_VALUE I=2147483647", "static final MIN_VALUE I=-2147483648",
		"<init> (I)V", "static valueOf (I)Ljava/lang/Integer;", "static parseInt (Ljava/lang/String;)I",
		"static toString (I)Ljava/lang/String;", "intValue ()I", "longValue ()J", "floatValue ()F",
		"doubleValue ()D", "compareTo (Ljava/lang/Integer;)I", "toString ()Ljava/lang/String;",
	}},
	{"java/lang/Long", "java/lang/Number", pubFinal, []string{"java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "static final MAX_VALUE J=9223372036854775807", "static final MIN_VALUE J=-9223372036854775808",
		"<init> (J)V", "static valueOf (J)Ljava/lang/Long;", "static parseLong (Ljava/lang/String;)J",
		"intValue ()I", "longValue ()J", "floatValue ()F", "doubleValue ()D", "toString ()Ljava/lang/String;",
	}},
	{"java/lang/Short", "java/lang/Number", pubFinal, []string{"java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "<init> (S)V", "static valueOf (S)Ljava/lang/Short;",
		"shortValue ()S", "intValue ()I", "longValue ()J", "floatValue ()F", "doubleValue ()D",
	}},
	{"java/lang/Byte", "java/lang/Number", pubFinal, []string{"java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "<init> (B)V", "static valueOf (B)Ljava/lang/Byte;",
		"byteValue ()B", "intValue ()I", "longValue ()J", "floatValue ()F", "doubleValue ()D",
	}},
	{"java/lang/Float", "java/lang/Number", pubFinal, []string{"java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "<init> (F)V", "static valueOf (F)Ljava/lang/Float;",
		"static parseFloat (Ljava/lang/String;)F", "floatValue ()F", "intValue ()I", "longValue ()J", "doubleValue ()D",
	}},
	{"java/lang/Double", "java/lang/Number", pubFinal, []string{"java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "<init> (D)V", "static valueOf (D)Ljava/lang/Double;",
		"static parseDouble (Ljava/lang/String;)D", "doubleValue ()D", "intValue ()I", "longValue ()J", "floatValue ()F",
	}},
	{"java/lang/Boolean", "java/lang/Object", pubFinal, []string{"java/io/Serializable", "java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "static final TRUE Ljava/lang/Boolean;", "static final FALSE Ljava/lang/Boolean;",
		"<init> (Z)V", "static valueOf (Z)Ljava/lang/Boolean;", "static parseBoolean (Ljava/lang/String;)Z",
		"booleanValue ()Z", "toString ()Ljava/lang/String;",
	}},
	{"java/lang/Character", "java/lang/Object", pubFinal, []string{"java/io/Serializable", "java/lang/Comparable"}, []string{
		"static final TYPE Ljava/lang/Class;", "<init> (C)V", "static valueOf (C)Ljava/lang/Character;",
		"charValue ()C", "static isDigit (C)Z", "static isLetter (C)Z", "static toUpperCase (C)C",
	}},
	{"java/lang/Void", "java/lang/Object", pubFinal, nil, []string{"static final TYPE Ljava/lang/Class;"}},

	{"java/lang/Class", "java/lang/Object", pubFinal, []string{"java/io/Serializable"}, []string{
		"static forName (Ljava/lang/String;)Ljava/lang/Class;", "getName ()Ljava/lang/String;",
		"getSimpleName ()Ljava/lang/String;", "isInstance (Ljava/lang/Object;)Z",
		"getSuperclass ()Ljava/lang/Class;", "getComponentType ()Ljava/lang/Class;",
		"isArray ()Z", "isPrimitive ()Z", "newInstance ()Ljava/lang/Object;",
		"getDeclaredField (Ljava/lang/String;)Ljava/lang/reflect/Field;",
		"getField (Ljava/lang/String;)Ljava/lang/reflect/Field;",
		"varargs getDeclaredMethod (Ljava/lang/String;[Ljava/lang/Class;)Ljava/lang/reflect/Method;",
		"varargs getMethod (Ljava/lang/String;[Ljava/lang/Class;)Ljava/lang/reflect/Method;",
		"varargs getDeclaredConstructor ([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;",
	}},
	{"java/lang/reflect/AccessibleObject", "java/lang/Object", pubClass, nil, []string{
		"setAccessible (Z)V", "isAccessible ()Z",
	}},
	{"java/lang/reflect/Field", "java/lang/reflect/AccessibleObject", pubFinal, nil, []string{
		"getName ()Ljava/lang/String;", "getType ()Ljava/lang/Class;",
		"get (Ljava/lang/Object;)Ljava/lang/Object;", "getBoolean (Ljava/lang/Object;)Z",
		"getByte (Ljava/lang/Object;)B", "getChar (Ljava/lang/Object;)C", "getShort (Ljava/lang/Object;)S",
		"getInt (Ljava/lang/Object;)I", "getLong (Ljava/lang/Object;)J", "getFloat (Ljava/lang/Object;)F",
		"getDouble (Ljava/lang/Object;)D",
		"set (Ljava/lang/Object;Ljava/lang/Object;)V", "setBoolean (Ljava/lang/Object;Z)V",
		"setByte (Ljava/lang/Object;B)V", "setChar (Ljava/lang/Object;C)V", "setShort (Ljava/lang/Object;S)V",
		"setInt (Ljava/lang/Object;I)V", "setLong (Ljava/lang/Object;J)V", "setFloat (Ljava/lang/Object;F)V",
		"setDouble (Ljava/lang/Object;D)V",
	}},
	{"java/lang/reflect/Method", "java/lang/reflect/AccessibleObject", pubFinal, nil, []string{
		"getName ()Ljava/lang/String;", "getReturnType ()Ljava/lang/Class;",
		"varargs invoke (Ljava/lang/Object;[Ljava/lang/Object;)Ljava/lang/Object;",
	}},
	{"java/lang/reflect/Constructor", "java/lang/reflect/AccessibleObject", pubFinal, nil, []string{
		"varargs newInstance ([Ljava/lang/Object;)Ljava/lang/Object;",
	}},

	{"java/lang/System", "java/lang/Object", pubFinal, nil, []string{
		"static final out Ljava/io/PrintStream;", "static final err Ljava/io/PrintStream;",
		"static currentTimeMillis ()J", "static nanoTime ()J",
		"static arraycopy (Ljava/lang/Object;ILjava/lang/Object;II)V",
		"static getProperty (Ljava/lang/String;)Ljava/lang/String;",
		"static identityHashCode (Ljava/lang/Object;)I", "static exit (I)V",
	}},
	{"java/io/PrintStream", "java/lang/Object", pubClass, []string{"java/lang/AutoCloseable"}, []string{
		"println ()V", "println (Z)V", "println (C)V", "println (I)V", "println (J)V", "println (F)V",
		"println (D)V", "println ([C)V", "println (Ljava/lang/String;)V", "println (Ljava/lang/Object;)V",
		"print (Z)V", "print (C)V", "print (I)V", "print (J)V", "print (F)V", "print (D)V",
		"print (Ljava/lang/String;)V", "print (Ljava/lang/Object;)V",
		"varargs printf (Ljava/lang/String;[Ljava/lang/Object;)Ljava/io/PrintStream;",
		"flush ()V", "close ()V",
	}},
	{"java/lang/StringBuilder", "java/lang/Object", pubFinal, []string{"java/lang/CharSequence", "java/io/Serializable"}, []string{
		"<init> ()V", "<init> (Ljava/lang/String;)V", "<init> (I)V",
		"append (Z)Ljava/lang/StringBuilder;", "append (C)Ljava/lang/StringBuilder;",
		"append (I)Ljava/lang/StringBuilder;", "append (J)Ljava/lang/StringBuilder;",
		"append (F)Ljava/lang/StringBuilder;", "append (D)Ljava/lang/StringBuilder;",
		"append (Ljava/lang/String;)Ljava/lang/StringBuilder;", "append (Ljava/lang/Object;)Ljava/lang/StringBuilder;",
		"insert (ILjava/lang/String;)Ljava/lang/StringBuilder;", "reverse ()Ljava/lang/StringBuilder;",
		"length ()I", "charAt (I)C", "toString ()Ljava/lang/String;",
	}},
	{"java/lang/Math", "java/lang/Object", pubFinal, nil, []string{
		"static final PI D=3.141592653589793", "static final E D=2.718281828459045",
		"static abs (I)I", "static abs (J)J", "static abs (F)F", "static abs (D)D",
		"static max (II)I", "static max (JJ)J", "static max (FF)F", "static max (DD)D",
		"static min (II)I", "static min (JJ)J", "static min (FF)F", "static min (DD)D",
		"static sqrt (D)D", "static pow (DD)D", "static floor (D)D", "static ceil (D)D",
		"static round (D)J", "static random ()D",
	}},
	{"java/lang/Thread", "java/lang/Object", pubClass, []string{"java/lang/Runnable"}, []string{
		"<init> ()V", "<init> (Ljava/lang/Runnable;)V", "static currentThread ()Ljava/lang/Thread;",
		"static sleep (J)V", "getName ()Ljava/lang/String;", "start ()V", "run ()V", "join ()V",
	}},
	{"java/lang/Enum", "java/lang/Object", pubAbstract, []string{"java/lang/Comparable", "java/io/Serializable"}, []string{
		"final name ()Ljava/lang/String;", "final ordinal ()I", "toString ()Ljava/lang/String;",
		"final compareTo (Ljava/lang/Enum;)I",
	}},
	{"java/lang/Record", "java/lang/Object", pubAbstract, nil, []string{"<init> ()V"}},

	{"java/lang/Throwable", "java/lang/Object", pubClass, []string{"java/io/Serializable"}, append([]string{
		"<init> (Ljava/lang/String;Ljava/lang/Throwable;)V", "getMessage ()Ljava/lang/String;",
		"getCause ()Ljava/lang/Throwable;", "printStackTrace ()V", "toString ()Ljava/lang/String;",
	}, exceptionCtors...)},
	{"java/lang/Exception", "java/lang/Throwable", pubClass, nil, exceptionCtors},
	{"java/lang/Error", "java/lang/Throwable", pubClass, nil, exceptionCtors},
	{"java/lang/RuntimeException", "java/lang/Exception", pubClass, nil, exceptionCtors},
	{"java/lang/IllegalArgumentException", "java/lang/RuntimeException", pubClass, nil, exceptionCtors},
	{"java/lang/IllegalStateException", "java/lang/RuntimeException", pubClass, nil, exceptionCtors},
	{"java/lang/NullPointerException", "java/lang/RuntimeException", pubClass, nil, exceptionCtors},
	{"java/lang/ArithmeticException", "java/lang/RuntimeException", pubClass, nil, exceptionCtors},
	{"java/lang/ClassCastException", "java/lang/RuntimeException", pubClass, nil, exceptionCtors},
	{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException", pubClass, nil, exceptionCtors},
	{"java/lang/UnsupportedOperationException", "java/lang/RuntimeException", pubClass, nil, exceptionCtors},
	{"java/lang/ReflectiveOperationException", "java/lang/Exception", pubClass, nil, exceptionCtors},
	{"java/lang/ClassNotFoundException", "java/lang/ReflectiveOperationException", pubClass, nil, exceptionCtors},
	{"java/lang/NoSuchFieldException", "java/lang/ReflectiveOperationException", pubClass, nil, exceptionCtors},
	{"java/lang/NoSuchMethodException", "java/lang/ReflectiveOperationException", pubClass, nil, exceptionCtors},
	{"java/io/IOException", "java/lang/Exception", pubClass, nil, exceptionCtors},

	{"java/util/Iterator", "java/lang/Object", pubInterface, nil, []string{
		"hasNext ()Z", "next ()Ljava/lang/Object;", "remove ()V",
	}},
	{"java/util/Collection", "java/lang/Object", pubInterface, []string{"java/lang/Iterable"}, []string{
		"size ()I", "isEmpty ()Z", "contains (Ljava/lang/Object;)Z", "add (Ljava/lang/Object;)Z",
		"remove (Ljava/lang/Object;)Z", "clear ()V",
	}},
	{"java/util/List", "java/lang/Object", pubInterface, []string{"java/util/Collection"}, []string{
		"get (I)Ljava/lang/Object;", "set (ILjava/lang/Object;)Ljava/lang/Object;",
		"add (ILjava/lang/Object;)V", "indexOf (Ljava/lang/Object;)I", "remove (I)Ljava/lang/Object;",
	}},
	{"java/util/Set", "java/lang/Object", pubInterface, []string{"java/util/Collection"}, nil},
	{"java/util/Map", "java/lang/Object", pubInterface, nil, []string{
		"size ()I", "isEmpty ()Z", "get (Ljava/lang/Object;)Ljava/lang/Object;",
		"put (Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;",
		"containsKey (Ljava/lang/Object;)Z", "remove (Ljava/lang/Object;)Ljava/lang/Object;",
		"keySet ()Ljava/util/Set;", "values ()Ljava/util/Collection;",
	}},
	{"java/util/AbstractCollection", "java/lang/Object", pubAbstract, []string{"java/util/Collection"}, []string{
		"<init> ()V", "toString ()Ljava/lang/String;",
	}},
	{"java/util/ArrayList", "java/util/AbstractCollection", pubClass, []string{"java/util/List", "java/lang/Cloneable", "java/io/Serializable"}, []string{
		"<init> ()V", "<init> (I)V", "<init> (Ljava/util/Collection;)V",
		"size ()I", "get (I)Ljava/lang/Object;", "add (Ljava/lang/Object;)Z",
		"set (ILjava/lang/Object;)Ljava/lang/Object;", "iterator ()Ljava/util/Iterator;",
	}},
	{"java/util/HashSet", "java/util/AbstractCollection", pubClass, []string{"java/util/Set", "java/lang/Cloneable", "java/io/Serializable"}, []string{
		"<init> ()V", "size ()I", "add (Ljava/lang/Object;)Z", "contains (Ljava/lang/Object;)Z",
		"iterator ()Ljava/util/Iterator;",
	}},
	{"java/util/HashMap", "java/lang/Object", pubClass, []string{"java/util/Map", "java/lang/Cloneable", "java/io/Serializable"}, []string{
		"<init> ()V", "<init> (I)V", "size ()I", "get (Ljava/lang/Object;)Ljava/lang/Object;",
		"put (Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;",
	}},
	{"java/util/Arrays", "java/lang/Object", pubClass, nil, []string{
		"static toString ([I)Ljava/lang/String;", "static toString ([J)Ljava/lang/String;",
		"static toString ([Ljava/lang/Object;)Ljava/lang/String;", "static sort ([I)V",
		"static varargs asList ([Ljava/lang/Object;)Ljava/util/List;",
	}},
	{"java/util/Objects", "java/lang/Object", pubFinal, nil, []string{
		"static equals (Ljava/lang/Object;Ljava/lang/Object;)Z", "static hashCode (Ljava/lang/Object;)I",
		"static toString (Ljava/lang/Object;)Ljava/lang/String;",
		"static requireNonNull (Ljava/lang/Object;)Ljava/lang/Object;",
	}},
}

var (
	builtinsOnce sync.Once
	builtins     *ClassFileEnvironment
)

// Builtins returns a name environment holding class file skeletons of the
// JDK types the engine relies on: java.lang, boxing, reflection and a few
// collection types. The returned environment is shared and read-only.
func Builtins() *ClassFileEnvironment {
	builtinsOnce.Do(func() {
		builtins = NewClassFileEnvironment(BuiltinContainer)
		for _, spec := range builtinClasses {
			builtins.Add(spec.classFile(), "")
		}
	})
	return builtins
}

func (b builtinClass) classFile() *classfile.ClassFile {
	cf := &classfile.ClassFile{
		Major:      classfile.MajorVersion,
		Access:     b.access,
		Name:       b.name,
		Super:      b.super,
		Interfaces: b.interfaces,
	}
	for _, m := range b.members {
		var access uint16 = classfile.AccPublic
		fields := strings.Fields(m)
		for len(fields) > 2 {
			switch fields[0] {
			case "static":
				access |= classfile.AccStatic
			case "final":
				access |= classfile.AccFinal
			case "varargs":
				access |= classfile.AccVarargs
			}
			fields = fields[1:]
		}
		name, desc := fields[0], fields[1]
		if strings.HasPrefix(desc, "(") {
			if b.access&classfile.AccInterface != 0 {
				access |= classfile.AccAbstract
			}
			cf.Methods = append(cf.Methods, &classfile.Method{Access: access, Name: name, Descriptor: desc})
			continue
		}
		f := &classfile.Field{Access: access, Name: name, Descriptor: desc}
		if i := strings.IndexByte(desc, '='); i >= 0 {
			f.Descriptor = desc[:i]
			f.Constant = parseConstant(f.Descriptor, desc[i+1:])
		}
		cf.Fields = append(cf.Fields, f)
	}
	return cf
}

func parseConstant(desc, text string) any {
	switch desc {
	case "I":
		v, _ := strconv.ParseInt(text, 10, 32)
		return int32(v)
	case "J":
		v, _ := strconv.ParseInt(text, 10, 64)
		return v
	case "F":
		v, _ := strconv.ParseFloat(text, 32)
		return float32(v)
	case "D":
		v, _ := strconv.ParseFloat(text, 64)
		return v
	}
	return text
}

// ClassFileEnvironment is a NameEnvironment over decoded class files keyed
// by internal name.
type ClassFileEnvironment struct {
	container string
	classes   map[string]*Answer
	packages  map[string]bool
}

// NewClassFileEnvironment creates an empty class file environment.
func NewClassFileEnvironment(container string) *ClassFileEnvironment {
	return &ClassFileEnvironment{
		container: container,
		classes:   make(map[string]*Answer),
		packages:  make(map[string]bool),
	}
}

// Add registers a class file.
func (c *ClassFileEnvironment) Add(cf *classfile.ClassFile, path string) {
	c.classes[cf.Name] = &Answer{Binary: cf, Container: c.container, Path: path}
	segs := SplitName(cf.Name)
	for i := 1; i < len(segs); i++ {
		c.packages[strings.Join(segs[:i], "/")] = true
	}
}

// Names returns the internal names of every registered class.
func (c *ClassFileEnvironment) Names() []string {
	out := make([]string, 0, len(c.classes))
	for name := range c.classes {
		out = append(out, name)
	}
	return out
}

// FindType implements NameEnvironment.
func (c *ClassFileEnvironment) FindType(compound []string) *Answer {
	return c.classes[strings.Join(compound, "/")]
}

// FindTypeInPackage implements NameEnvironment.
func (c *ClassFileEnvironment) FindTypeInPackage(name string, pkg []string) *Answer {
	return c.FindType(append(append([]string(nil), pkg...), name))
}

// IsPackage implements NameEnvironment.
func (c *ClassFileEnvironment) IsPackage(parent []string, name string) bool {
	return c.packages[strings.Join(append(append([]string(nil), parent...), name), "/")]
}
